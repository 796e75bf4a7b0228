package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Dashboard aggregates are recomputed on every state change; the TTL
	// is a backstop, invalidation is the primary mechanism.
	studentDashboardKeyPrefix = "dashboard:student:"
	teacherDashboardKeyPrefix = "dashboard:teacher:"
	adminDashboardKey         = "dashboard:admin"

	activeCoursesKey = "courses:active"

	lessonByIDKeyPrefix   = "lesson:id:"
	lessonsByUserPrefix   = "lessons:user:"
	enrollmentByStudentKP = "enrollment:student:"
)

// RedisCacheRepository backs read caching and invalidation with Redis
type RedisCacheRepository struct {
	client *redis.Client
}

func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{client: client}
}

// Get retrieves and unmarshals a cached value into dest. A cache miss is
// returned as redis.Nil.
func (r *RedisCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// Set marshals and stores a value with TTL
func (r *RedisCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache value: %w", err)
	}
	return nil
}

// Delete removes keys; missing keys are not an error
func (r *RedisCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DeleteByPattern scans and removes all keys matching the glob pattern
func (r *RedisCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	return r.Delete(ctx, keys...)
}

// --- Dashboard caching ---

func (r *RedisCacheRepository) SetStudentDashboard(ctx context.Context, studentID string, data interface{}, ttl time.Duration) error {
	return r.Set(ctx, studentDashboardKeyPrefix+studentID, data, ttl)
}

func (r *RedisCacheRepository) GetStudentDashboard(ctx context.Context, studentID string, dest interface{}) error {
	return r.Get(ctx, studentDashboardKeyPrefix+studentID, dest)
}

func (r *RedisCacheRepository) SetTeacherDashboard(ctx context.Context, teacherID string, data interface{}, ttl time.Duration) error {
	return r.Set(ctx, teacherDashboardKeyPrefix+teacherID, data, ttl)
}

func (r *RedisCacheRepository) GetTeacherDashboard(ctx context.Context, teacherID string, dest interface{}) error {
	return r.Get(ctx, teacherDashboardKeyPrefix+teacherID, dest)
}

func (r *RedisCacheRepository) SetAdminDashboard(ctx context.Context, data interface{}, ttl time.Duration) error {
	return r.Set(ctx, adminDashboardKey, data, ttl)
}

func (r *RedisCacheRepository) GetAdminDashboard(ctx context.Context, dest interface{}) error {
	return r.Get(ctx, adminDashboardKey, dest)
}

// --- Course list caching ---

func (r *RedisCacheRepository) SetActiveCourses(ctx context.Context, data interface{}, ttl time.Duration) error {
	return r.Set(ctx, activeCoursesKey, data, ttl)
}

func (r *RedisCacheRepository) GetActiveCourses(ctx context.Context, dest interface{}) error {
	return r.Get(ctx, activeCoursesKey, dest)
}

func (r *RedisCacheRepository) InvalidateCourses(ctx context.Context) error {
	return r.Delete(ctx, activeCoursesKey, adminDashboardKey)
}

// --- Invalidation on mutations ---

// InvalidateLesson drops the caches whose aggregates depend on a lesson:
// the lesson itself, both parties' lesson lists and dashboards, and the
// admin rollup.
func (r *RedisCacheRepository) InvalidateLesson(ctx context.Context, lessonID, studentID, teacherID string) error {
	keys := []string{adminDashboardKey}
	if lessonID != "" {
		keys = append(keys, lessonByIDKeyPrefix+lessonID)
	}
	if studentID != "" {
		keys = append(keys,
			lessonsByUserPrefix+studentID,
			studentDashboardKeyPrefix+studentID,
		)
	}
	if teacherID != "" {
		keys = append(keys,
			lessonsByUserPrefix+teacherID,
			teacherDashboardKeyPrefix+teacherID,
		)
	}
	return r.Delete(ctx, keys...)
}

// InvalidateEnrollment drops the student's enrollment view and dashboard
func (r *RedisCacheRepository) InvalidateEnrollment(ctx context.Context, studentID string) error {
	return r.Delete(ctx,
		enrollmentByStudentKP+studentID,
		studentDashboardKeyPrefix+studentID,
		adminDashboardKey,
	)
}

// InvalidateProfile drops caches keyed by a profile
func (r *RedisCacheRepository) InvalidateProfile(ctx context.Context, profileID string) error {
	return r.Delete(ctx,
		studentDashboardKeyPrefix+profileID,
		teacherDashboardKeyPrefix+profileID,
		adminDashboardKey,
	)
}
