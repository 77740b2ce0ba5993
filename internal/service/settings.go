package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/earnhub/backend/internal/model"
)

// SettingsService serves a cached, validated snapshot of the settings table.
// Concurrent cache misses collapse into one store read.
type SettingsService struct {
	store    Store
	adminSvc *AdminService
	log      *zap.Logger

	mu     sync.RWMutex
	cached *model.Settings
	// gen is bumped by Invalidate; a load that started under an older
	// generation must not populate the cache.
	gen   uint64
	group singleflight.Group

	updateMu sync.Mutex
}

func NewSettingsService(store Store, log *zap.Logger) *SettingsService {
	return &SettingsService{store: store, log: log}
}

// SetAdminService sets the admin service (to avoid circular deps)
func (s *SettingsService) SetAdminService(adminSvc *AdminService) {
	s.adminSvc = adminSvc
}

// Current returns the settings every earning and withdrawal decision is made against.
func (s *SettingsService) Current(ctx context.Context) (model.Settings, error) {
	s.mu.RLock()
	cached, gen := s.cached, s.gen
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	v, err, _ := s.group.Do("settings", func() (interface{}, error) {
		values, err := s.values(ctx)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseSettings(values)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.cached = &parsed
		}
		s.mu.Unlock()
		return parsed, nil
	})
	if err != nil {
		return model.Settings{}, err
	}
	return v.(model.Settings), nil
}

// Invalidate drops the cached snapshot. Loads already in flight finish but
// are not cached.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
	s.group.Forget("settings")
}

// List returns every recognised setting, filling keys missing from the store with defaults.
func (s *SettingsService) List(ctx context.Context) ([]model.Setting, error) {
	stored, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	return withDefaults(stored), nil
}

func withDefaults(stored []model.Setting) []model.Setting {
	byKey := make(map[string]model.Setting, len(stored))
	for _, st := range stored {
		byKey[st.Key] = st
	}

	out := make([]model.Setting, 0, len(model.SettingDefs))
	for _, def := range model.SettingDefs {
		st, ok := byKey[def.Key]
		if !ok {
			desc := def.Description
			st = model.Setting{Key: def.Key, Value: def.Default, Description: &desc}
		}
		out = append(out, st)
	}
	return out
}

func settingValues(list []model.Setting) map[string]string {
	values := make(map[string]string, len(list))
	for _, st := range list {
		values[st.Key] = st.Value
	}
	return values
}

func (s *SettingsService) values(ctx context.Context) (map[string]string, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return settingValues(list), nil
}

// Update validates the merged result of applying changes and persists all of
// them atomically. Nothing is written if any value is rejected. Updates are
// serialized, and the store re-validates against the rows it locked.
func (s *SettingsService) Update(ctx context.Context, adminID int64, changes map[string]string) (model.Settings, error) {
	if len(changes) == 0 {
		return model.Settings{}, fmt.Errorf("%w: no settings given", ErrValidation)
	}

	keys := make([]string, 0, len(changes))
	for key := range changes {
		if _, ok := model.LookupSettingDef(key); !ok {
			return model.Settings{}, fmt.Errorf("%w: unknown setting %q", ErrValidation, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]model.Setting, 0, len(keys))
	applied := make(map[string]string, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(changes[key])
		applied[key] = value
		rows = append(rows, model.Setting{Key: key, Value: value})
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	var parsed model.Settings
	err := s.store.UpsertSettings(ctx, rows, func(current []model.Setting) error {
		values := settingValues(withDefaults(current))
		for key, value := range applied {
			values[key] = value
		}
		var err error
		parsed, err = ParseSettings(values)
		return err
	})
	// Invalidate even on failure: a Postgres error may leave the outcome unknown.
	s.Invalidate()
	if err != nil {
		return model.Settings{}, err
	}

	s.log.Info("settings updated", zap.Int64("admin_id", adminID), zap.Strings("keys", keys))
	if s.adminSvc != nil {
		s.adminSvc.LogAction(ctx, adminID, model.AdminActionUpdateSettings, nil, applied)
	}
	return parsed, nil
}

// ParseSettings validates raw setting values: all non-negative numbers, the
// daily limits whole numbers, and spin_min_reward <= spin_max_reward.
func ParseSettings(values map[string]string) (model.Settings, error) {
	var st model.Settings
	var err error

	intOf := func(key string) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = strconv.Atoi(values[key])
		if err != nil || n < 0 {
			err = fmt.Errorf("%w: %s must be a non-negative whole number", ErrValidation, key)
		}
		return n
	}
	moneyOf := func(key string) decimal.Decimal {
		if err != nil {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(values[key])
		if err != nil || d.IsNegative() {
			err = fmt.Errorf("%w: %s must be a non-negative number", ErrValidation, key)
			return decimal.Zero
		}
		if !model.IsMoney(d) {
			err = fmt.Errorf("%w: %s must have at most %d decimal places and %d integer digits", ErrValidation, key, model.MoneyPlaces, model.MoneyIntDigits)
		}
		return d
	}

	st.DailyAdLimit = intOf(model.SettingDailyAdLimit)
	st.AdRewardAmount = moneyOf(model.SettingAdRewardAmount)
	st.DailySpinLimit = intOf(model.SettingDailySpinLimit)
	st.SpinMinReward = moneyOf(model.SettingSpinMinReward)
	st.SpinMaxReward = moneyOf(model.SettingSpinMaxReward)
	st.MinWithdrawalAmount = moneyOf(model.SettingMinWithdrawalAmount)
	st.WithdrawalFee = moneyOf(model.SettingWithdrawalFee)
	if err != nil {
		return model.Settings{}, err
	}

	if st.SpinMinReward.GreaterThan(st.SpinMaxReward) {
		return model.Settings{}, fmt.Errorf("%w: %s must not exceed %s", ErrValidation, model.SettingSpinMinReward, model.SettingSpinMaxReward)
	}
	return st, nil
}
