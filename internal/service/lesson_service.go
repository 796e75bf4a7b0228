package service

import (
	"context"
	"fmt"
	"time"

	"github.com/driveline/driveline/internal/domain"
)

// LessonService manages the lesson lifecycle between students and teachers
type LessonService struct {
	lessonRepo     domain.LessonRepository
	enrollmentRepo domain.EnrollmentRepository
	profileRepo    domain.ProfileRepository
	courseRepo     domain.CourseRepository
}

// NewLessonService creates a new lesson service
func NewLessonService(
	lessonRepo domain.LessonRepository,
	enrollmentRepo domain.EnrollmentRepository,
	profileRepo domain.ProfileRepository,
	courseRepo domain.CourseRepository,
) *LessonService {
	return &LessonService{
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		profileRepo:    profileRepo,
		courseRepo:     courseRepo,
	}
}

// BookLessonRequest contains the student's booking form
type BookLessonRequest struct {
	TeacherID string `json:"teacher_id"`
	CourseID  string `json:"course_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
}

// Book creates a pending lesson request. The student must hold a
// confirmed enrollment and the target must be a teacher profile.
func (s *LessonService) Book(ctx context.Context, studentID string, req BookLessonRequest) (*domain.Lesson, error) {
	if req.TeacherID == "" || req.CourseID == "" || req.Date == "" || req.Time == "" || req.Location == "" {
		return nil, domain.ErrMissingLessonFields
	}
	if err := domain.ValidateLessonSlot(req.Date, req.Time, time.Now().UTC()); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollmentRepo.GetByStudent(ctx, studentID)
	if err == domain.ErrEnrollmentNotFound {
		return nil, domain.ErrNotConfirmed
	}
	if err != nil {
		return nil, err
	}
	if !enrollment.Active() {
		return nil, domain.ErrNotConfirmed
	}

	teacher, err := s.profileRepo.GetByID(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if teacher.Role != domain.RoleTeacher {
		return nil, fmt.Errorf("profile %s is not a teacher", req.TeacherID)
	}

	if _, err := s.courseRepo.GetByID(ctx, req.CourseID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lesson := &domain.Lesson{
		StudentID:  studentID,
		TeacherID:  req.TeacherID,
		CourseID:   req.CourseID,
		LessonDate: req.Date,
		LessonTime: req.Time,
		Location:   req.Location,
		Status:     domain.LessonPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}
	return lesson, nil
}

// Reschedule moves a non-terminal lesson to a new slot. Either party may
// reschedule; the status is left untouched, so a confirmed lesson stays
// confirmed without teacher re-approval.
func (s *LessonService) Reschedule(ctx context.Context, actorID, role, lessonID, date, lessonTime string) (*domain.Lesson, error) {
	lesson, err := s.authorizedLesson(ctx, actorID, role, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Terminal() {
		return nil, domain.ErrLessonTerminal
	}
	if err := domain.ValidateLessonSlot(date, lessonTime, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.lessonRepo.UpdateSlot(ctx, lessonID, date, lessonTime); err != nil {
		return nil, err
	}
	lesson.LessonDate = date
	lesson.LessonTime = lessonTime
	return lesson, nil
}

// AttachNote writes the caller's note onto the lesson. Teachers and
// students write to separate fields and cannot touch each other's. Only
// parties to the lesson carry notes, so admins are not given a field.
func (s *LessonService) AttachNote(ctx context.Context, actorID, role, lessonID, notes string) error {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return err
	}
	if !lesson.Party(actorID) {
		return domain.ErrForbidden
	}

	field := "student_notes"
	if role == domain.RoleTeacher {
		field = "teacher_notes"
	}
	return s.lessonRepo.UpdateNotes(ctx, lessonID, field, notes)
}

// Approve moves a pending lesson to confirmed. Assigned teacher or admin.
func (s *LessonService) Approve(ctx context.Context, actorID, role, lessonID string) error {
	return s.transitionByInstructor(ctx, actorID, role, lessonID, domain.LessonConfirmed)
}

// Decline cancels a pending lesson request. Assigned teacher or admin.
func (s *LessonService) Decline(ctx context.Context, actorID, role, lessonID string) error {
	lesson, err := s.authorizedLesson(ctx, actorID, role, lessonID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin && lesson.TeacherID != actorID {
		return domain.ErrForbidden
	}
	if lesson.Status != domain.LessonPending {
		return domain.ErrInvalidTransition
	}
	return s.lessonRepo.UpdateStatus(ctx, lessonID, domain.LessonCancelled)
}

// Complete marks a confirmed lesson as delivered. Assigned teacher or admin.
func (s *LessonService) Complete(ctx context.Context, actorID, role, lessonID string) error {
	return s.transitionByInstructor(ctx, actorID, role, lessonID, domain.LessonCompleted)
}

// Cancel cancels a pending or confirmed lesson. Either party or an admin
// may cancel.
func (s *LessonService) Cancel(ctx context.Context, actorID, role, lessonID string) error {
	lesson, err := s.authorizedLesson(ctx, actorID, role, lessonID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(lesson.Status, domain.LessonCancelled) {
		if lesson.Terminal() {
			return domain.ErrLessonTerminal
		}
		return domain.ErrInvalidTransition
	}
	return s.lessonRepo.UpdateStatus(ctx, lessonID, domain.LessonCancelled)
}

// GetByID fetches a lesson the caller is allowed to see: admins see all,
// everyone else only their own lessons
func (s *LessonService) GetByID(ctx context.Context, actorID, role, lessonID string) (*domain.Lesson, error) {
	return s.authorizedLesson(ctx, actorID, role, lessonID)
}

// ListForUser returns all lessons where the profile is a party, sorted
// by date and time
func (s *LessonService) ListForUser(ctx context.Context, profileID string) ([]*domain.Lesson, error) {
	return s.lessonRepo.GetByParty(ctx, profileID)
}

// ListAll returns every lesson, for the admin overview
func (s *LessonService) ListAll(ctx context.Context) ([]*domain.Lesson, error) {
	return s.lessonRepo.GetAll(ctx)
}

// StatsForUser aggregates the profile's lessons for dashboard cards
func (s *LessonService) StatsForUser(ctx context.Context, profileID string) (domain.LessonStats, error) {
	lessons, err := s.lessonRepo.GetByParty(ctx, profileID)
	if err != nil {
		return domain.LessonStats{}, err
	}
	return domain.ComputeLessonStats(lessons), nil
}

// transitionByInstructor applies a status change reserved for the
// lesson's assigned teacher or an admin, enforcing the lifecycle table
func (s *LessonService) transitionByInstructor(ctx context.Context, actorID, role, lessonID, to string) error {
	lesson, err := s.authorizedLesson(ctx, actorID, role, lessonID)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin && lesson.TeacherID != actorID {
		return domain.ErrForbidden
	}
	if !domain.CanTransition(lesson.Status, to) {
		if lesson.Terminal() {
			return domain.ErrLessonTerminal
		}
		return domain.ErrInvalidTransition
	}
	return s.lessonRepo.UpdateStatus(ctx, lessonID, to)
}

// authorizedLesson loads the lesson and checks the actor is a party to
// it; admins see every lesson
func (s *LessonService) authorizedLesson(ctx context.Context, actorID, role, lessonID string) (*domain.Lesson, error) {
	lesson, err := s.lessonRepo.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleAdmin && !lesson.Party(actorID) {
		return nil, domain.ErrForbidden
	}
	return lesson, nil
}
