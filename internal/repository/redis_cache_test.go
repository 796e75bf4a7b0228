package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCacheRepository {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheRepository(client)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, cache.Set(ctx, "k1", payload{Name: "a", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, cache.Get(ctx, "k1", &got))
	assert.Equal(t, payload{Name: "a", Count: 3}, got)
}

func TestCacheMissIsRedisNil(t *testing.T) {
	cache := newTestCache(t)

	var dest map[string]string
	err := cache.Get(context.Background(), "absent", &dest)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestInvalidateLessonDropsDependentKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, lessonByIDKeyPrefix+"l1", "lesson", time.Minute))
	require.NoError(t, cache.Set(ctx, lessonsByUserPrefix+"s1", "student-list", time.Minute))
	require.NoError(t, cache.Set(ctx, lessonsByUserPrefix+"t1", "teacher-list", time.Minute))
	require.NoError(t, cache.SetStudentDashboard(ctx, "s1", "student-dash", time.Minute))
	require.NoError(t, cache.SetTeacherDashboard(ctx, "t1", "teacher-dash", time.Minute))
	require.NoError(t, cache.SetAdminDashboard(ctx, "admin-dash", time.Minute))

	// An unrelated student's caches must survive.
	require.NoError(t, cache.SetStudentDashboard(ctx, "s2", "other-dash", time.Minute))

	require.NoError(t, cache.InvalidateLesson(ctx, "l1", "s1", "t1"))

	var s string
	assert.ErrorIs(t, cache.Get(ctx, lessonByIDKeyPrefix+"l1", &s), redis.Nil)
	assert.ErrorIs(t, cache.Get(ctx, lessonsByUserPrefix+"s1", &s), redis.Nil)
	assert.ErrorIs(t, cache.Get(ctx, lessonsByUserPrefix+"t1", &s), redis.Nil)
	assert.ErrorIs(t, cache.GetStudentDashboard(ctx, "s1", &s), redis.Nil)
	assert.ErrorIs(t, cache.GetTeacherDashboard(ctx, "t1", &s), redis.Nil)
	assert.ErrorIs(t, cache.GetAdminDashboard(ctx, &s), redis.Nil)

	require.NoError(t, cache.GetStudentDashboard(ctx, "s2", &s))
	assert.Equal(t, "other-dash", s)
}

func TestInvalidateEnrollment(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, enrollmentByStudentKP+"s1", "enrollment", time.Minute))
	require.NoError(t, cache.SetStudentDashboard(ctx, "s1", "dash", time.Minute))

	require.NoError(t, cache.InvalidateEnrollment(ctx, "s1"))

	var s string
	assert.ErrorIs(t, cache.Get(ctx, enrollmentByStudentKP+"s1", &s), redis.Nil)
	assert.ErrorIs(t, cache.GetStudentDashboard(ctx, "s1", &s), redis.Nil)
}

func TestDeleteByPattern(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "lessons:user:a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "lessons:user:b", 2, time.Minute))
	require.NoError(t, cache.Set(ctx, "courses:active", 3, time.Minute))

	require.NoError(t, cache.DeleteByPattern(ctx, "lessons:user:*"))

	var n int
	assert.ErrorIs(t, cache.Get(ctx, "lessons:user:a", &n), redis.Nil)
	assert.ErrorIs(t, cache.Get(ctx, "lessons:user:b", &n), redis.Nil)
	require.NoError(t, cache.Get(ctx, "courses:active", &n))
	assert.Equal(t, 3, n)
}
