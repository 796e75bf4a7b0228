package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	userDashboardTTL  = 2 * time.Minute
	adminDashboardTTL = 5 * time.Minute
)

// DashboardService aggregates per-role overview data
type DashboardService struct {
	enrollmentRepo domain.EnrollmentRepository
	lessonRepo     domain.LessonRepository
	profileRepo    domain.ProfileRepository
	courseRepo     domain.CourseRepository
	cache          *repository.RedisCacheRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	enrollmentRepo domain.EnrollmentRepository,
	lessonRepo domain.LessonRepository,
	profileRepo domain.ProfileRepository,
	courseRepo domain.CourseRepository,
	cache *repository.RedisCacheRepository,
) *DashboardService {
	return &DashboardService{
		enrollmentRepo: enrollmentRepo,
		lessonRepo:     lessonRepo,
		profileRepo:    profileRepo,
		courseRepo:     courseRepo,
		cache:          cache,
	}
}

// StudentDashboard is the student's home screen payload
type StudentDashboard struct {
	Onboarding *OnboardingState   `json:"onboarding"`
	Stats      domain.LessonStats `json:"stats"`
	Upcoming   []*domain.Lesson   `json:"upcoming"`
}

// TeacherDashboard is the teacher's home screen payload
type TeacherDashboard struct {
	Stats           domain.LessonStats   `json:"stats"`
	StudentCount    int                  `json:"student_count"`
	PendingRequests []*domain.Lesson     `json:"pending_requests"`
	AwaitingReview  []*domain.Enrollment `json:"awaiting_review"`
}

// AdminDashboard is the admin overview payload
type AdminDashboard struct {
	StudentCount    int                `json:"student_count"`
	TeacherCount    int                `json:"teacher_count"`
	ActiveCourses   int                `json:"active_courses"`
	PaidEnrollments int64              `json:"paid_enrollments"`
	PendingPayments int64              `json:"pending_payments"`
	TotalRevenue    float64            `json:"total_revenue"`
	LessonStats     domain.LessonStats `json:"lesson_stats"`
}

// GetStudentDashboard builds the student's home payload, served from
// Redis when warm. The fan-out pieces run concurrently.
func (s *DashboardService) GetStudentDashboard(ctx context.Context, studentID string) (*StudentDashboard, error) {
	var cached StudentDashboard
	if err := s.cache.GetStudentDashboard(ctx, studentID, &cached); err == nil {
		return &cached, nil
	}

	dash := &StudentDashboard{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		enrollment, err := s.enrollmentRepo.GetByStudent(gCtx, studentID)
		if err != nil && err != domain.ErrEnrollmentNotFound {
			return fmt.Errorf("failed to get enrollment: %w", err)
		}
		if err == domain.ErrEnrollmentNotFound {
			enrollment = nil
		}
		dash.Onboarding = &OnboardingState{
			Enrollment:  enrollment,
			CurrentStep: enrollment.CurrentStep(),
			Progress:    enrollment.ProgressPercentage(),
			Active:      enrollment.Active(),
		}
		return nil
	})

	g.Go(func() error {
		lessons, err := s.lessonRepo.GetByStudent(gCtx, studentID)
		if err != nil {
			return fmt.Errorf("failed to get lessons: %w", err)
		}
		dash.Stats = domain.ComputeLessonStats(lessons)
		dash.Upcoming = upcomingLessons(lessons, 5)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.cache.SetStudentDashboard(ctx, studentID, dash, userDashboardTTL); err != nil {
		log.Printf("[dashboard] failed to cache student dashboard: %v", err)
	}
	return dash, nil
}

// GetTeacherDashboard builds the teacher's home payload
func (s *DashboardService) GetTeacherDashboard(ctx context.Context, teacherID string) (*TeacherDashboard, error) {
	var cached TeacherDashboard
	if err := s.cache.GetTeacherDashboard(ctx, teacherID, &cached); err == nil {
		return &cached, nil
	}

	dash := &TeacherDashboard{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lessons, err := s.lessonRepo.GetByTeacher(gCtx, teacherID)
		if err != nil {
			return fmt.Errorf("failed to get lessons: %w", err)
		}
		dash.Stats = domain.ComputeLessonStats(lessons)
		dash.StudentCount = len(domain.DistinctStudents(lessons))
		dash.PendingRequests = filterByStatus(lessons, domain.LessonPending)
		return nil
	})

	g.Go(func() error {
		awaiting, err := s.enrollmentRepo.GetAwaitingConfirmation(gCtx)
		if err != nil {
			return fmt.Errorf("failed to get awaiting enrollments: %w", err)
		}
		dash.AwaitingReview = awaiting
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.cache.SetTeacherDashboard(ctx, teacherID, dash, userDashboardTTL); err != nil {
		log.Printf("[dashboard] failed to cache teacher dashboard: %v", err)
	}
	return dash, nil
}

// GetAdminDashboard builds the school-wide overview
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	var cached AdminDashboard
	if err := s.cache.GetAdminDashboard(ctx, &cached); err == nil {
		return &cached, nil
	}

	dash := &AdminDashboard{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		students, err := s.profileRepo.GetByRole(gCtx, domain.RoleStudent)
		if err != nil {
			return fmt.Errorf("failed to count students: %w", err)
		}
		dash.StudentCount = len(students)
		return nil
	})

	g.Go(func() error {
		teachers, err := s.profileRepo.GetByRole(gCtx, domain.RoleTeacher)
		if err != nil {
			return fmt.Errorf("failed to count teachers: %w", err)
		}
		dash.TeacherCount = len(teachers)
		return nil
	})

	g.Go(func() error {
		courses, err := s.courseRepo.GetActive(gCtx)
		if err != nil {
			return fmt.Errorf("failed to count courses: %w", err)
		}
		dash.ActiveCourses = len(courses)
		return nil
	})

	g.Go(func() error {
		paid, err := s.enrollmentRepo.CountByPaymentStatus(gCtx, domain.PaymentPaid)
		if err != nil {
			return fmt.Errorf("failed to count paid enrollments: %w", err)
		}
		dash.PaidEnrollments = paid
		return nil
	})

	g.Go(func() error {
		pending, err := s.enrollmentRepo.CountByPaymentStatus(gCtx, domain.PaymentPending)
		if err != nil {
			return fmt.Errorf("failed to count pending payments: %w", err)
		}
		dash.PendingPayments = pending
		return nil
	})

	g.Go(func() error {
		revenue, err := s.paidRevenue(gCtx)
		if err != nil {
			return fmt.Errorf("failed to sum revenue: %w", err)
		}
		dash.TotalRevenue = revenue
		return nil
	})

	g.Go(func() error {
		lessons, err := s.lessonRepo.GetAll(gCtx)
		if err != nil {
			return fmt.Errorf("failed to get lessons: %w", err)
		}
		dash.LessonStats = domain.ComputeLessonStats(lessons)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.cache.SetAdminDashboard(ctx, dash, adminDashboardTTL); err != nil {
		log.Printf("[dashboard] failed to cache admin dashboard: %v", err)
	}
	return dash, nil
}

// paidRevenue sums the course price of every paid enrollment. Prices are
// read at aggregation time, so a course price change reprices history;
// acceptable for an overview card.
func (s *DashboardService) paidRevenue(ctx context.Context) (float64, error) {
	enrollments, err := s.enrollmentRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	courses, err := s.courseRepo.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	prices := make(map[string]float64, len(courses))
	for _, c := range courses {
		prices[c.ID] = c.Price
	}

	var total float64
	for _, e := range enrollments {
		if e.PaymentStatus == domain.PaymentPaid {
			total += prices[e.CourseID]
		}
	}
	return total, nil
}

// upcomingLessons picks non-terminal lessons dated today or later.
// Input is already sorted by date and time.
func upcomingLessons(lessons []*domain.Lesson, limit int) []*domain.Lesson {
	today := time.Now().UTC().Format(domain.LessonDateLayout)
	out := []*domain.Lesson{}
	for _, l := range lessons {
		if l.Terminal() || l.LessonDate < today {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out
}

func filterByStatus(lessons []*domain.Lesson, status string) []*domain.Lesson {
	out := []*domain.Lesson{}
	for _, l := range lessons {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}
