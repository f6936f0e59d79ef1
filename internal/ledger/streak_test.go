package ledger

import "testing"

func TestStreak(t *testing.T) {
	today := 19900
	cases := []struct {
		name string
		days []int
		want int
	}{
		{"three consecutive days", []int{today, today - 1, today - 2}, 3},
		{"today missing resets to zero", []int{today - 1, today - 2}, 0},
		{"gap stops the walk", []int{today, today - 2, today - 3}, 1},
		{"only today", []int{today}, 1},
		{"no days", nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			logged := make(map[int]bool, len(c.days))
			for _, d := range c.days {
				logged[d] = true
			}
			if got := Streak(logged, today); got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}
