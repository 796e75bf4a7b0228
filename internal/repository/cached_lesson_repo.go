package repository

import (
	"context"
	"time"

	"github.com/driveline/driveline/internal/domain"
)

const (
	lessonCacheTTL     = 5 * time.Minute
	lessonListCacheTTL = 2 * time.Minute
)

// CachedLessonRepository wraps MongoLessonRepository with Redis caching.
// Every mutation invalidates exactly the caches whose derived aggregates
// depend on the mutated lesson.
type CachedLessonRepository struct {
	mongo *MongoLessonRepository
	cache *RedisCacheRepository
}

func NewCachedLessonRepository(mongo *MongoLessonRepository, cache *RedisCacheRepository) *CachedLessonRepository {
	return &CachedLessonRepository{mongo: mongo, cache: cache}
}

// GetByID retrieves a lesson with read-through caching
func (r *CachedLessonRepository) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	key := lessonByIDKeyPrefix + id

	var lesson domain.Lesson
	if err := r.cache.Get(ctx, key, &lesson); err == nil {
		return &lesson, nil
	}

	result, err := r.mongo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache errors never fail the read
	_ = r.cache.Set(ctx, key, result, lessonCacheTTL)
	return result, nil
}

// GetByParty retrieves a user's lessons with read-through caching
func (r *CachedLessonRepository) GetByParty(ctx context.Context, profileID string) ([]*domain.Lesson, error) {
	key := lessonsByUserPrefix + profileID

	var lessons []*domain.Lesson
	if err := r.cache.Get(ctx, key, &lessons); err == nil {
		return lessons, nil
	}

	result, err := r.mongo.GetByParty(ctx, profileID)
	if err != nil {
		return nil, err
	}

	_ = r.cache.Set(ctx, key, result, lessonListCacheTTL)
	return result, nil
}

func (r *CachedLessonRepository) Create(ctx context.Context, lesson *domain.Lesson) error {
	if err := r.mongo.Create(ctx, lesson); err != nil {
		return err
	}
	_ = r.cache.InvalidateLesson(ctx, lesson.ID, lesson.StudentID, lesson.TeacherID)
	return nil
}

func (r *CachedLessonRepository) UpdateSlot(ctx context.Context, id, date, lessonTime string) error {
	lesson, _ := r.mongo.GetByID(ctx, id)

	if err := r.mongo.UpdateSlot(ctx, id, date, lessonTime); err != nil {
		return err
	}
	r.invalidate(ctx, id, lesson)
	return nil
}

func (r *CachedLessonRepository) UpdateStatus(ctx context.Context, id, status string) error {
	lesson, _ := r.mongo.GetByID(ctx, id)

	if err := r.mongo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	r.invalidate(ctx, id, lesson)
	return nil
}

func (r *CachedLessonRepository) UpdateNotes(ctx context.Context, id, field, notes string) error {
	lesson, _ := r.mongo.GetByID(ctx, id)

	if err := r.mongo.UpdateNotes(ctx, id, field, notes); err != nil {
		return err
	}
	r.invalidate(ctx, id, lesson)
	return nil
}

func (r *CachedLessonRepository) invalidate(ctx context.Context, id string, lesson *domain.Lesson) {
	studentID, teacherID := "", ""
	if lesson != nil {
		studentID, teacherID = lesson.StudentID, lesson.TeacherID
	}
	_ = r.cache.InvalidateLesson(ctx, id, studentID, teacherID)
}

// === Pass-through methods (no caching) ===

func (r *CachedLessonRepository) GetByStudent(ctx context.Context, studentID string) ([]*domain.Lesson, error) {
	return r.mongo.GetByStudent(ctx, studentID)
}

func (r *CachedLessonRepository) GetByTeacher(ctx context.Context, teacherID string) ([]*domain.Lesson, error) {
	return r.mongo.GetByTeacher(ctx, teacherID)
}

func (r *CachedLessonRepository) GetAll(ctx context.Context) ([]*domain.Lesson, error) {
	return r.mongo.GetAll(ctx)
}

func (r *CachedLessonRepository) CountByTeacher(ctx context.Context, teacherID string) (int64, error) {
	return r.mongo.CountByTeacher(ctx, teacherID)
}

func (r *CachedLessonRepository) CountReferencing(ctx context.Context, profileID string) (int64, error) {
	return r.mongo.CountReferencing(ctx, profileID)
}
