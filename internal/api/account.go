package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/hellofit/fitledger/internal/progress"
)

// AccountAPI serves profile and preference methods.
type AccountAPI struct {
	progress *progress.Service
}

// NewAccountAPI creates account method handlers.
func NewAccountAPI(svc *progress.Service) *AccountAPI {
	return &AccountAPI{progress: svc}
}

type preferencesParams struct {
	UserID               string  `json:"user_id"`
	Age                  *int    `json:"age"`
	HeightCm             *int    `json:"height_cm"`
	Goal                 *string `json:"goal"`
	Units                *string `json:"units"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

// GetProfile returns the decoded profile document, advisory cache included.
func (a *AccountAPI) GetProfile(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	profile, err := a.progress.Profile(c.Request.Context(), p.UserID)
	if err != nil {
		return nil, err
	}
	return gin.H{"profile": profile}, nil
}

// UpdatePreferences merge-writes the provided profile fields.
func (a *AccountAPI) UpdatePreferences(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p preferencesParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Goal != nil {
		switch *p.Goal {
		case "Lose", "Maintain", "Gain":
		default:
			return nil, NewError(ErrInvalidParams, "goal must be Lose, Maintain or Gain")
		}
	}
	err := a.progress.UpdatePreferences(c.Request.Context(), p.UserID, progress.Preferences{
		Age:                  p.Age,
		HeightCm:             p.HeightCm,
		Goal:                 p.Goal,
		Units:                p.Units,
		NotificationsEnabled: p.NotificationsEnabled,
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"updated": true}, nil
}
