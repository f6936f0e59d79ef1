package progress

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hellofit/fitledger/internal/ledger"
	"github.com/hellofit/fitledger/internal/models"
	"github.com/hellofit/fitledger/internal/store"
	"github.com/hellofit/fitledger/pkg/logging"
)

// historyLimit caps the chart window at the latest weigh-ins.
const historyLimit = 60

// Service owns the weigh-in log, the profile document and the advisory
// metrics cache on it.
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a progress service over the given store.
func NewService(st store.Store) *Service {
	return &Service{
		store:  st,
		now:    time.Now,
		logger: logging.WithComponent("progress"),
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SaveWeighIn appends a weigh-in and refreshes the advisory cache on the
// profile document. The log append is authoritative; a cache write failure
// is logged and swallowed, since every reader tolerates a stale or absent
// cache.
func (s *Service) SaveWeighIn(ctx context.Context, userID string, weightKg float64) (models.ProgressPoint, error) {
	if userID == "" {
		return models.ProgressPoint{}, ledger.ErrNotAuthenticated
	}
	if weightKg <= 0 {
		return models.ProgressPoint{}, fmt.Errorf("invalid weight %v", weightKg)
	}

	profileDoc, err := s.store.Get(ctx, ledger.UsersCollection, userID)
	if err != nil {
		return models.ProgressPoint{}, fmt.Errorf("load profile: %w", err)
	}
	profile := models.ProfileFromDocument(profileDoc)

	now := s.now()
	nowMs := now.UnixMilli()
	today := ledger.EpochDay(now)
	target := ledger.CalorieTarget(weightKg, profile.Goal)

	point := models.ProgressPoint{
		TimestampMs:   nowMs,
		WeightKg:      &weightKg,
		CalorieTarget: &target,
		DateEpochDay:  today,
	}
	log := map[string]interface{}{
		"timestamp":     nowMs,
		"dateEpochDay":  today,
		"weightKg":      weightKg,
		"calorieTarget": target,
		"updatedAt":     nowMs,
	}
	if profile.HeightCm != nil {
		bmi := ledger.Round1(ledger.BMI(weightKg, *profile.HeightCm))
		point.BMI = &bmi
		log["bmi"] = bmi
	}

	if _, err := s.store.Add(ctx, ledger.ProgressCollection(userID), log); err != nil {
		return models.ProgressPoint{}, fmt.Errorf("append weigh-in: %w", err)
	}

	cache := map[string]interface{}{
		"currentWeightKg": weightKg,
		"calorieTarget":   target,
		"goal":            profile.Goal,
		"weightUpdatedAt": nowMs,
	}
	if point.BMI != nil {
		cache["lastBmi"] = *point.BMI
	}
	if err := s.store.Set(ctx, ledger.UsersCollection, userID, cache, true); err != nil {
		s.logger.Warn("metrics cache refresh failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return point, nil
}

// History returns the latest weigh-ins in ascending timestamp order, capped
// at historyLimit. Records without a timestamp are skipped.
func (s *Service) History(ctx context.Context, userID string) ([]models.ProgressPoint, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	docs, err := s.store.Query(ctx, ledger.ProgressCollection(userID), nil,
		&store.Order{Field: "timestamp", Desc: true}, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	points := make([]models.ProgressPoint, 0, len(docs))
	for _, doc := range docs {
		if p, ok := models.ProgressPointFromDocument(doc); ok {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].TimestampMs < points[j].TimestampMs })
	return points, nil
}

// Streak reports whether today has a weigh-in and how many consecutive days
// (ending today) do.
func (s *Service) Streak(ctx context.Context, userID string) (todayDone bool, streak int, err error) {
	if userID == "" {
		return false, 0, ledger.ErrNotAuthenticated
	}
	docs, err := s.store.Query(ctx, ledger.ProgressCollection(userID), nil, nil, 0)
	if err != nil {
		return false, 0, fmt.Errorf("load progress days: %w", err)
	}
	days := make(map[int]bool, len(docs))
	for _, doc := range docs {
		if d, ok := models.AsInt(doc.Fields["dateEpochDay"]); ok {
			days[d] = true
		}
	}
	today := ledger.EpochDay(s.now())
	return days[today], ledger.Streak(days, today), nil
}

// ResolveWeight walks the fallback chain: cached snapshot, then the latest
// raw weigh-in, then the legacy profile field. nil when nothing is known.
func (s *Service) ResolveWeight(ctx context.Context, userID string) (*float64, error) {
	if userID == "" {
		return nil, ledger.ErrNotAuthenticated
	}
	profileDoc, err := s.store.Get(ctx, ledger.UsersCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	profile := models.ProfileFromDocument(profileDoc)
	if profile.CurrentWeightKg != nil {
		return profile.CurrentWeightKg, nil
	}

	docs, err := s.store.Query(ctx, ledger.ProgressCollection(userID), nil,
		&store.Order{Field: "timestamp", Desc: true}, 1)
	if err != nil {
		return nil, fmt.Errorf("load latest weigh-in: %w", err)
	}
	if len(docs) == 1 {
		if p, ok := models.ProgressPointFromDocument(docs[0]); ok && p.WeightKg != nil {
			return p.WeightKg, nil
		}
	}
	return profile.WeightKg, nil
}

// Profile loads the user document as a decoded profile.
func (s *Service) Profile(ctx context.Context, userID string) (models.Profile, error) {
	if userID == "" {
		return models.Profile{}, ledger.ErrNotAuthenticated
	}
	doc, err := s.store.Get(ctx, ledger.UsersCollection, userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return models.ProfileFromDocument(doc), nil
}

// Preferences is the writable subset of the profile document.
type Preferences struct {
	Age                  *int
	HeightCm             *int
	Goal                 *string
	Units                *string
	NotificationsEnabled *bool
}

// UpdatePreferences merge-writes the provided fields onto the profile
// document, leaving everything else (including the advisory cache) intact.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	if userID == "" {
		return ledger.ErrNotAuthenticated
	}
	fields := map[string]interface{}{}
	if prefs.Age != nil {
		fields["age"] = *prefs.Age
	}
	if prefs.HeightCm != nil {
		fields["heightCm"] = *prefs.HeightCm
	}
	if prefs.Goal != nil {
		fields["goal"] = *prefs.Goal
	}
	if prefs.Units != nil {
		fields["units"] = *prefs.Units
	}
	if prefs.NotificationsEnabled != nil {
		fields["notificationsEnabled"] = *prefs.NotificationsEnabled
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Set(ctx, ledger.UsersCollection, userID, fields, true); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	s.logger.Debug("preferences updated", zap.String("user_id", userID))
	return nil
}
