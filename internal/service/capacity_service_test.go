package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schoolplan/timetable-api/internal/models"
	"github.com/schoolplan/timetable-api/pkg/config"
	appErrors "github.com/schoolplan/timetable-api/pkg/errors"
)

type planReaderStub struct {
	plan       *models.PlanSetting
	dailyLimit *int
}

func (s *planReaderStub) PlanSettingByID(ctx context.Context, id int64) (*models.PlanSetting, error) {
	if s.plan == nil {
		return nil, sql.ErrNoRows
	}
	return s.plan, nil
}

func (s *planReaderStub) TeacherMaxDailyPeriods(ctx context.Context, teacherID int64) (*int, error) {
	return s.dailyLimit, nil
}

type cacheStub struct {
	entries map[string]int
	sets    int
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if value, ok := s.entries[key]; ok {
		*(dest.(*int)) = value
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets++
	s.entries[key] = value.(int)
	return nil
}

func testPolicy() config.TimetableConfig {
	return config.TimetableConfig{DefaultWeeklyCapacity: 35, FallbackDaysPerWeek: 5}
}

func TestWeeklyCapacityFromPlanSetting(t *testing.T) {
	plans := &planReaderStub{plan: &models.PlanSetting{ID: 60, PeriodsPerDay: 8, DaysPerWeek: 5}}
	service := NewCapacityService(plans, nil, 0, testPolicy(), nil, nil)

	assert.Equal(t, 40, service.WeeklyCapacity(context.Background(), 10, 60))
}

func TestWeeklyCapacityTeacherFallback(t *testing.T) {
	limit := 6
	plans := &planReaderStub{dailyLimit: &limit}
	service := NewCapacityService(plans, nil, 0, testPolicy(), nil, nil)

	// no plan setting resolvable: daily limit x 5
	assert.Equal(t, 30, service.WeeklyCapacity(context.Background(), 10, 60))
	// no plan setting referenced at all
	assert.Equal(t, 30, service.WeeklyCapacity(context.Background(), 10, 0))
}

func TestWeeklyCapacityDefault(t *testing.T) {
	service := NewCapacityService(&planReaderStub{}, nil, 0, testPolicy(), nil, nil)

	assert.Equal(t, 35, service.WeeklyCapacity(context.Background(), 10, 0))
}

func TestWeeklyCapacityUnconfiguredPlanFallsThrough(t *testing.T) {
	plans := &planReaderStub{plan: &models.PlanSetting{ID: 60}}
	service := NewCapacityService(plans, nil, 0, testPolicy(), nil, nil)

	assert.Equal(t, 35, service.WeeklyCapacity(context.Background(), 10, 60))
}

func TestWeeklyCapacityCaching(t *testing.T) {
	plans := &planReaderStub{plan: &models.PlanSetting{ID: 60, PeriodsPerDay: 7, DaysPerWeek: 5}}
	cache := &cacheStub{entries: make(map[string]int)}
	service := NewCapacityService(plans, cache, time.Minute, testPolicy(), nil, nil)

	assert.Equal(t, 35, service.WeeklyCapacity(context.Background(), 10, 60))
	assert.Equal(t, 1, cache.sets)

	// second call is served from the cache even if the plan disappears
	plans.plan = nil
	assert.Equal(t, 35, service.WeeklyCapacity(context.Background(), 10, 60))
	assert.Equal(t, 1, cache.sets)
}
