package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/hellofit/fitledger/internal/progress"
)

// ProgressAPI serves weigh-in and streak methods.
type ProgressAPI struct {
	progress *progress.Service
}

// NewProgressAPI creates progress method handlers.
func NewProgressAPI(svc *progress.Service) *ProgressAPI {
	return &ProgressAPI{progress: svc}
}

type userParams struct {
	UserID string `json:"user_id"`
}

type weighInParams struct {
	UserID   string  `json:"user_id"`
	WeightKg float64 `json:"weight_kg"`
}

// SaveWeighIn records a weigh-in and returns the stored point, including
// the BMI and calorie target computed from the current profile.
func (a *ProgressAPI) SaveWeighIn(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p weighInParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.WeightKg <= 0 {
		return nil, NewError(ErrInvalidParams, "weight_kg must be positive")
	}
	point, err := a.progress.SaveWeighIn(c.Request.Context(), p.UserID, p.WeightKg)
	if err != nil {
		return nil, err
	}
	return gin.H{"point": point}, nil
}

// History returns the latest weigh-ins, oldest first, for charting.
func (a *ProgressAPI) History(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	points, err := a.progress.History(c.Request.Context(), p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"points": points}, nil
}

// Streak returns whether today has a weigh-in and the consecutive-day count.
func (a *ProgressAPI) Streak(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	todayDone, streak, err := a.progress.Streak(c.Request.Context(), p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"today_done": todayDone, "streak": streak}, nil
}
