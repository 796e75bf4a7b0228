package domain

import (
	"context"
	"errors"
	"time"
)

// Common Errors
var (
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrLessonTerminal      = errors.New("lesson is in a terminal state")
	ErrInvalidTransition   = errors.New("invalid lesson status transition")
	ErrMissingLessonFields = errors.New("teacher, course, date, time and location are all required")
	ErrLessonDateInPast    = errors.New("lesson date must not be in the past")
	ErrInvalidLessonDate   = errors.New("lesson date must be YYYY-MM-DD and time HH:MM")
)

// Lesson Status Constants
const (
	LessonPending   = "pending"
	LessonConfirmed = "confirmed"
	LessonCompleted = "completed"
	LessonCancelled = "cancelled"
)

// Wire formats for lesson date and time fields
const (
	LessonDateLayout = "2006-01-02"
	LessonTimeLayout = "15:04"
)

// Lesson is a booked driving lesson between one student and one teacher
type Lesson struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	StudentID    string    `bson:"student_id" json:"student_id"`
	TeacherID    string    `bson:"teacher_id" json:"teacher_id"`
	CourseID     string    `bson:"course_id" json:"course_id"`
	LessonDate   string    `bson:"lesson_date" json:"lesson_date"`
	LessonTime   string    `bson:"lesson_time" json:"lesson_time"`
	Location     string    `bson:"location" json:"location"`
	Status       string    `bson:"status" json:"status"`
	TeacherNotes string    `bson:"teacher_notes,omitempty" json:"teacher_notes,omitempty"`
	StudentNotes string    `bson:"student_notes,omitempty" json:"student_notes,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`

	// Optional embedded related records for list reads. nil means the
	// related record was not fetched, not that it does not exist.
	Student *Profile `bson:"student,omitempty" json:"student,omitempty"`
	Teacher *Profile `bson:"teacher,omitempty" json:"teacher,omitempty"`
	Course  *Course  `bson:"course,omitempty" json:"course,omitempty"`
}

// Terminal reports whether the lesson can no longer change status
func (l *Lesson) Terminal() bool {
	return l.Status == LessonCompleted || l.Status == LessonCancelled
}

// Party reports whether the given profile is the lesson's student or teacher
func (l *Lesson) Party(profileID string) bool {
	return l.StudentID == profileID || l.TeacherID == profileID
}

// CanTransition is the single source of truth for the lesson lifecycle:
// pending -> confirmed -> completed, with cancelled reachable once from
// either non-terminal state. Completed and cancelled never resurrect.
func CanTransition(from, to string) bool {
	switch from {
	case LessonPending:
		return to == LessonConfirmed || to == LessonCancelled
	case LessonConfirmed:
		return to == LessonCompleted || to == LessonCancelled
	default:
		return false
	}
}

// ValidateLessonSlot checks the date/time formats and rejects past dates.
// The boundary is inclusive: booking for today is accepted and the time
// component is not checked against the current clock.
func ValidateLessonSlot(date, lessonTime string, now time.Time) error {
	d, err := time.Parse(LessonDateLayout, date)
	if err != nil {
		return ErrInvalidLessonDate
	}
	if _, err := time.Parse(LessonTimeLayout, lessonTime); err != nil {
		return ErrInvalidLessonDate
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.Before(today) {
		return ErrLessonDateInPast
	}
	return nil
}

// LessonStats aggregates a set of lessons for dashboard consumption.
// Counts are derived from the top-level status field only, so lessons
// with unfetched related records still count correctly.
type LessonStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// ComputeLessonStats tallies statuses over a lesson list
func ComputeLessonStats(lessons []*Lesson) LessonStats {
	var s LessonStats
	for _, l := range lessons {
		s.Total++
		switch l.Status {
		case LessonPending:
			s.Pending++
		case LessonConfirmed:
			s.Confirmed++
		case LessonCompleted:
			s.Completed++
		case LessonCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Remaining is the count of lessons not yet completed, floored at zero
func (s LessonStats) Remaining() int {
	if s.Completed >= s.Total {
		return 0
	}
	return s.Total - s.Completed
}

// CompletionRate is completed/total as a percentage, 0 for an empty set
func (s LessonStats) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total) * 100
}

// DistinctStudents returns the unique student ids among lessons
func DistinctStudents(lessons []*Lesson) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, l := range lessons {
		if l.StudentID != "" && !seen[l.StudentID] {
			seen[l.StudentID] = true
			ids = append(ids, l.StudentID)
		}
	}
	return ids
}

// LessonRepository defines operations for managing lessons
type LessonRepository interface {
	Create(ctx context.Context, lesson *Lesson) error
	GetByID(ctx context.Context, id string) (*Lesson, error)
	GetByStudent(ctx context.Context, studentID string) ([]*Lesson, error)
	GetByTeacher(ctx context.Context, teacherID string) ([]*Lesson, error)
	GetByParty(ctx context.Context, profileID string) ([]*Lesson, error)
	GetAll(ctx context.Context) ([]*Lesson, error)
	UpdateSlot(ctx context.Context, id, date, lessonTime string) error
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateNotes(ctx context.Context, id, field, notes string) error
	CountByTeacher(ctx context.Context, teacherID string) (int64, error)
	// CountReferencing counts lessons naming the profile as student or teacher
	CountReferencing(ctx context.Context, profileID string) (int64, error)
}
