package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCourseInactive = errors.New("course is not open for enrollment")
	ErrInvalidCourse  = errors.New("invalid course: price must be non-negative and duration positive")
)

// Course is a catalog entry students enroll into.
// Deactivation hides a course from selection without deleting history.
type Course struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Description   string    `bson:"description,omitempty" json:"description,omitempty"`
	Price         float64   `bson:"price" json:"price"`
	DurationHours int       `bson:"duration_hours" json:"duration_hours"`
	IsActive      bool      `bson:"is_active" json:"is_active"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Validate checks the admin-supplied fields
func (c *Course) Validate() error {
	if c.Name == "" || c.Price < 0 || c.DurationHours <= 0 {
		return ErrInvalidCourse
	}
	return nil
}

// CourseRepository defines operations for the course catalog
type CourseRepository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id string) (*Course, error)
	GetActive(ctx context.Context) ([]*Course, error)
	GetAll(ctx context.Context) ([]*Course, error)
	Update(ctx context.Context, course *Course) error
	SetActive(ctx context.Context, id string, active bool) error
}
