package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
)

const activeCoursesTTL = 10 * time.Minute

// CourseService manages the course catalog
type CourseService struct {
	courseRepo domain.CourseRepository
	cache      *repository.RedisCacheRepository
}

// NewCourseService creates a new course service
func NewCourseService(courseRepo domain.CourseRepository, cache *repository.RedisCacheRepository) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		cache:      cache,
	}
}

// CreateCourse adds a catalog entry. New courses start active.
func (s *CourseService) CreateCourse(ctx context.Context, course *domain.Course) error {
	if err := course.Validate(); err != nil {
		return err
	}
	course.IsActive = true
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	if err := s.courseRepo.Create(ctx, course); err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	s.invalidateCatalog(ctx)
	return nil
}

// UpdateCourse replaces the mutable fields of a catalog entry
func (s *CourseService) UpdateCourse(ctx context.Context, course *domain.Course) error {
	if err := course.Validate(); err != nil {
		return err
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// SetActive toggles whether the course is open for enrollment.
// Deactivation never touches existing enrollments or lessons.
func (s *CourseService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.courseRepo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// GetByID fetches a single course
func (s *CourseService) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// ListActive returns courses open for enrollment, served from Redis when warm
func (s *CourseService) ListActive(ctx context.Context) ([]*domain.Course, error) {
	var cached []*domain.Course
	if err := s.cache.GetActiveCourses(ctx, &cached); err == nil {
		return cached, nil
	}

	courses, err := s.courseRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetActiveCourses(ctx, courses, activeCoursesTTL); err != nil {
		log.Printf("[course] failed to cache active courses: %v", err)
	}
	return courses, nil
}

// ListAll returns every catalog entry including deactivated ones
func (s *CourseService) ListAll(ctx context.Context) ([]*domain.Course, error) {
	return s.courseRepo.GetAll(ctx)
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if err := s.cache.InvalidateCourses(ctx); err != nil {
		log.Printf("[course] failed to invalidate catalog cache: %v", err)
	}
}
