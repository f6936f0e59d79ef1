package ledger

// Streak counts consecutive logged days walking backward from today. The
// walk always starts at today: a day without a log today yields 0 even if
// yesterday was logged. Reset-on-miss is intentional.
func Streak(loggedDays map[int]bool, today int) int {
	streak := 0
	for d := today; loggedDays[d]; d-- {
		streak++
	}
	return streak
}
