package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/pkg/config"
)

type planSettingReader interface {
	PlanSettingByID(ctx context.Context, id int64) (*models.PlanSetting, error)
	TeacherMaxDailyPeriods(ctx context.Context, teacherID int64) (*int, error)
}

type capacityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CapacityService derives a teacher's weekly period ceiling. The fallback
// chain is: plan setting (periods/day x days/week), then the teacher's own
// daily limit x the fallback week length, then the configured default.
type CapacityService struct {
	plans    planSettingReader
	cache    capacityCache
	cacheTTL time.Duration
	policy   config.TimetableConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewCapacityService creates a capacity oracle. cache may be nil to disable
// plan-setting caching.
func NewCapacityService(plans planSettingReader, cache capacityCache, cacheTTL time.Duration, policy config.TimetableConfig, metrics *MetricsService, logger *zap.Logger) *CapacityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.DefaultWeeklyCapacity <= 0 {
		policy.DefaultWeeklyCapacity = 35
	}
	if policy.FallbackDaysPerWeek <= 0 {
		policy.FallbackDaysPerWeek = 5
	}
	return &CapacityService{
		plans:    plans,
		cache:    cache,
		cacheTTL: cacheTTL,
		policy:   policy,
		metrics:  metrics,
		logger:   logger,
	}
}

// WeeklyCapacity returns the weekly period ceiling for a teacher. A missing
// or unconfigured plan setting is not an error; the next rule applies.
func (s *CapacityService) WeeklyCapacity(ctx context.Context, teacherID, planSettingID int64) int {
	if planSettingID > 0 {
		if capacity := s.planCapacity(ctx, planSettingID); capacity > 0 {
			return capacity
		}
	}

	limit, err := s.plans.TeacherMaxDailyPeriods(ctx, teacherID)
	if err != nil {
		s.logger.Debug("teacher daily limit lookup failed", zap.Int64("teacher_id", teacherID), zap.Error(err))
	} else if limit != nil && *limit > 0 {
		return *limit * s.policy.FallbackDaysPerWeek
	}

	return s.policy.DefaultWeeklyCapacity
}

func (s *CapacityService) planCapacity(ctx context.Context, planSettingID int64) int {
	key := fmt.Sprintf("capacity:plan:%d", planSettingID)

	if s.cache != nil {
		var cached int
		start := time.Now()
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return cached
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
	}

	setting, err := s.plans.PlanSettingByID(ctx, planSettingID)
	if err != nil {
		s.logger.Debug("plan setting lookup failed", zap.Int64("plan_setting_id", planSettingID), zap.Error(err))
		return 0
	}
	capacity := setting.WeeklyCapacity()

	if s.cache != nil && capacity > 0 {
		if err := s.cache.Set(ctx, key, capacity, s.cacheTTL); err != nil {
			s.logger.Debug("plan capacity cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return capacity
}
