package api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/progress"
	"github.com/hellofit/fitledger/internal/store"
)

// LedgerAPI serves the daily activity ledger methods for both domains.
type LedgerAPI struct {
	store      store.Store
	reconciler *ledger.Reconciler
	progress   *progress.Service
}

// NewLedgerAPI creates ledger method handlers.
func NewLedgerAPI(st store.Store, rec *ledger.Reconciler, prog *progress.Service) *LedgerAPI {
	return &LedgerAPI{store: st, reconciler: rec, progress: prog}
}

func parseParams(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 {
		return NewError(ErrInvalidParams, "Missing params")
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return NewError(ErrInvalidParams, "Invalid params")
	}
	return nil
}

type domainParams struct {
	Domain string `json:"domain"`
}

type userDomainParams struct {
	UserID string `json:"user_id"`
	Domain string `json:"domain"`
}

type entryParams struct {
	UserID string `json:"user_id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`

	Intensity   string   `json:"intensity"`
	MET         *float64 `json:"met"`
	DurationMin *int     `json:"duration_min"`
	Kcal        *int     `json:"kcal"`
	Protein     *int     `json:"protein"`
	Carbs       *int     `json:"carbs"`
	Fat         *int     `json:"fat"`
}

// entry resolves the request to a catalog item, overlaying any explicit
// fields, so clients can add custom entries alongside catalog ones.
func (p entryParams) entry(d ledger.Domain) models.Entry {
	item, err := ledger.CatalogItem(d, p.Name)
	if err != nil {
		item = models.Entry{Name: p.Name}
	}
	if p.Intensity != "" {
		item.Intensity = p.Intensity
	}
	if p.MET != nil {
		item.MET = p.MET
	}
	if p.DurationMin != nil {
		item.DurationMin = p.DurationMin
	}
	if p.Kcal != nil {
		item.Kcal = p.Kcal
	}
	if p.Protein != nil {
		item.Protein = p.Protein
	}
	if p.Carbs != nil {
		item.Carbs = p.Carbs
	}
	if p.Fat != nil {
		item.Fat = p.Fat
	}
	return item
}

// Catalog returns the built-in selectable items for a domain.
func (a *LedgerAPI) Catalog(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p domainParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	return gin.H{"items": ledger.Catalog(d)}, nil
}

// Today lists today's plan entries.
func (a *LedgerAPI) Today(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userDomainParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	entries, err := a.reconciler.ListToday(c.Request.Context(), p.UserID, d)
	if err != nil {
		return nil, err
	}
	return gin.H{"entries": entries}, nil
}

// AddToday puts an item on today's plan.
func (a *LedgerAPI) AddToday(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p entryParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	if p.Name == "" {
		return nil, NewError(ErrInvalidParams, "name is required")
	}
	id, err := a.reconciler.AddToToday(c.Request.Context(), p.UserID, d, p.entry(d))
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}

// Complete logs a plan entry as done. The user's weight feeds the workout
// kcal snapshot; it is resolved through the usual fallback chain.
func (a *LedgerAPI) Complete(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p entryParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	if p.Name == "" {
		return nil, NewError(ErrInvalidParams, "name is required")
	}
	weight, err := a.progress.ResolveWeight(c.Request.Context(), p.UserID)
	if err != nil {
		return nil, err
	}
	logged, err := a.reconciler.Complete(c.Request.Context(), p.UserID, d, p.entry(d), weight)
	if err != nil {
		return nil, err
	}
	return gin.H{"logged": logged}, nil
}

// RemoveToday drops an entry from today's plan.
func (a *LedgerAPI) RemoveToday(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p entryParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	if err := a.reconciler.Remove(c.Request.Context(), p.UserID, d, p.Name); err != nil {
		return nil, err
	}
	return gin.H{"removed": true}, nil
}

// Dashboard returns the derived read model a dashboard screen renders:
// today's plan, today's totals, trailing-week totals and profile figures.
func (a *LedgerAPI) Dashboard(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var p userDomainParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	d, err := ledger.ParseDomain(p.Domain)
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	snap, err := ledger.LoadSnapshot(c.Request.Context(), a.store, p.UserID, d, a.reconciler.Today())
	if err != nil {
		return nil, err
	}
	return snap, nil
}
