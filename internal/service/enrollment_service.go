package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"path"
	"strings"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
)

// EnrollmentService drives a student's onboarding from course selection
// to lesson-booking eligibility
type EnrollmentService struct {
	enrollmentRepo domain.EnrollmentRepository
	courseRepo     domain.CourseRepository
	profileRepo    domain.ProfileRepository
	fileRepo       domain.FileRepository
	payment        PaymentProvider
	saleCodes      *SaleCodeService
	cache          *repository.RedisCacheRepository
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(
	enrollmentRepo domain.EnrollmentRepository,
	courseRepo domain.CourseRepository,
	profileRepo domain.ProfileRepository,
	fileRepo domain.FileRepository,
	payment PaymentProvider,
	saleCodes *SaleCodeService,
	cache *repository.RedisCacheRepository,
) *EnrollmentService {
	return &EnrollmentService{
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		profileRepo:    profileRepo,
		fileRepo:       fileRepo,
		payment:        payment,
		saleCodes:      saleCodes,
		cache:          cache,
	}
}

// OnboardingState is the student's progress snapshot
type OnboardingState struct {
	Enrollment  *domain.Enrollment `json:"enrollment"`
	CurrentStep int                `json:"current_step"`
	Progress    float64            `json:"progress"`
	Active      bool               `json:"active"`
}

// SelectCourse creates the student's enrollment record in payment-pending
// state. A student keeps at most one live enrollment.
func (s *EnrollmentService) SelectCourse(ctx context.Context, studentID, courseID string) (*domain.Enrollment, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, domain.ErrCourseInactive
	}

	now := time.Now().UTC()
	enrollment := &domain.Enrollment{
		StudentID:      studentID,
		CourseID:       course.ID,
		PaymentStatus:  domain.PaymentPending,
		OnboardingStep: domain.StepPayment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.enrollmentRepo.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	s.invalidate(ctx, studentID)
	enrollment.Course = course
	return enrollment, nil
}

// GetOnboarding returns the student's onboarding snapshot. A student with
// no enrollment is reported at the course-selection step, not as an error.
func (s *EnrollmentService) GetOnboarding(ctx context.Context, studentID string) (*OnboardingState, error) {
	enrollment, err := s.enrollmentRepo.GetByStudent(ctx, studentID)
	if err != nil && err != domain.ErrEnrollmentNotFound {
		return nil, err
	}
	if err == domain.ErrEnrollmentNotFound {
		enrollment = nil
	}

	return &OnboardingState{
		Enrollment:  enrollment,
		CurrentStep: enrollment.CurrentStep(),
		Progress:    enrollment.ProgressPercentage(),
		Active:      enrollment.Active(),
	}, nil
}

// PaymentInitiation is the hosted checkout handoff for the frontend
type PaymentInitiation struct {
	SessionID   string    `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
	Amount      int64     `json:"amount"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// InitiatePayment opens a checkout session for the student's pending
// enrollment. An optional sale code discounts the course price; the code's
// usage counter is only consumed once the session is created.
func (s *EnrollmentService) InitiatePayment(ctx context.Context, studentID, saleCode string) (*PaymentInitiation, error) {
	enrollment, err := s.enrollmentRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if enrollment.PaymentStatus == domain.PaymentPaid {
		return nil, fmt.Errorf("enrollment is already paid")
	}

	course, err := s.courseRepo.GetByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, err
	}

	price := course.Price
	var redeemed *domain.SaleCode
	if saleCode != "" {
		redeemed, err = s.saleCodes.Validate(ctx, saleCode)
		if err != nil {
			return nil, err
		}
		price = price * float64(100-redeemed.DiscountPercentage) / 100
	}
	// round to the nearest whole unit so a fractional catalogue price is
	// not silently truncated
	amount := int64(math.Round(price))

	profile, err := s.profileRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	session, err := s.payment.CreateSession(ctx, amount, course.Name, profile.FullName(), profile.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentSessionFailed, err)
	}

	if err := s.enrollmentRepo.SetPaymentSession(ctx, enrollment.ID, session.SessionID); err != nil {
		return nil, fmt.Errorf("failed to record payment session: %w", err)
	}

	if redeemed != nil {
		if err := s.saleCodes.ConsumeUsage(ctx, redeemed.ID); err != nil {
			log.Printf("[enrollment] failed to count sale code usage for %s: %v", redeemed.Code, err)
		}
	}

	s.invalidate(ctx, studentID)
	return &PaymentInitiation{
		SessionID:   session.SessionID,
		CheckoutURL: session.CheckoutURL,
		Amount:      amount,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// ConfirmPayment settles a checkout session from a gateway webhook.
// Success moves the enrollment to the document-upload step; failure marks
// the payment failed and leaves the student free to retry.
func (s *EnrollmentService) ConfirmPayment(ctx context.Context, sessionID string, success bool) (*domain.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.GetByPaymentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Replayed notifications for an already-paid enrollment are a no-op
	if enrollment.PaymentStatus == domain.PaymentPaid {
		return enrollment, nil
	}

	status := domain.PaymentFailed
	step := domain.StepPayment
	if success {
		status = domain.PaymentPaid
		step = domain.StepUploadDocuments
	}

	if err := s.enrollmentRepo.SetPaymentStatus(ctx, enrollment.ID, status, step); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	enrollment.PaymentStatus = status
	s.invalidate(ctx, enrollment.StudentID)
	return enrollment, nil
}

// UploadDocument stores a licence/ID document and flags the enrollment.
// If the object store write succeeds but the record update fails, the
// caller gets ErrDocumentFlagPending with the stored URL and should retry
// via RetryDocumentFlag rather than re-uploading.
func (s *EnrollmentService) UploadDocument(ctx context.Context, studentID string, file []byte, filename, contentType string) (string, error) {
	enrollment, err := s.enrollmentRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return "", err
	}
	if enrollment.PaymentStatus != domain.PaymentPaid {
		return "", domain.ErrPaymentRequired
	}

	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "bin"
	}
	key := fmt.Sprintf("%s/%d.%s", studentID, time.Now().UnixMilli(), ext)

	url, err := s.fileRepo.Upload(ctx, file, key, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}

	if err := s.enrollmentRepo.SetDocumentsUploaded(ctx, enrollment.ID, url, domain.StepAwaitConfirmation); err != nil {
		log.Printf("[enrollment] document stored at %s but flag update failed: %v", url, err)
		return url, domain.ErrDocumentFlagPending
	}

	s.invalidate(ctx, studentID)
	return url, nil
}

// RetryDocumentFlag re-applies the documents_uploaded flag for a document
// that already landed in the object store. The URL is checked against the
// store so the flag never asserts a file that was never written.
func (s *EnrollmentService) RetryDocumentFlag(ctx context.Context, studentID, documentURL string) error {
	enrollment, err := s.enrollmentRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if enrollment.PaymentStatus != domain.PaymentPaid {
		return domain.ErrPaymentRequired
	}

	stored, err := s.fileRepo.Exists(ctx, documentURL)
	if err != nil {
		return fmt.Errorf("failed to verify stored document: %w", err)
	}
	if !stored {
		return domain.ErrDocumentMissing
	}

	if err := s.enrollmentRepo.SetDocumentsUploaded(ctx, enrollment.ID, documentURL, domain.StepAwaitConfirmation); err != nil {
		return domain.ErrDocumentFlagPending
	}

	s.invalidate(ctx, studentID)
	return nil
}

// ConfirmInstructor marks the enrollment as reviewed and activates the
// student for lesson booking. Requires documents on file.
func (s *EnrollmentService) ConfirmInstructor(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.enrollmentRepo.GetByID(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if !enrollment.DocumentsUploaded {
		return domain.ErrDocumentsRequired
	}
	if enrollment.InstructorConfirmed {
		return nil
	}

	if err := s.enrollmentRepo.SetInstructorConfirmed(ctx, enrollment.ID, domain.StepActive); err != nil {
		return fmt.Errorf("failed to confirm enrollment: %w", err)
	}

	s.invalidate(ctx, enrollment.StudentID)
	return nil
}

// GetAwaitingConfirmation lists enrollments with documents on file that
// no instructor has confirmed yet
func (s *EnrollmentService) GetAwaitingConfirmation(ctx context.Context) ([]*domain.Enrollment, error) {
	return s.enrollmentRepo.GetAwaitingConfirmation(ctx)
}

// GetAll returns every enrollment, for the admin roster
func (s *EnrollmentService) GetAll(ctx context.Context) ([]*domain.Enrollment, error) {
	return s.enrollmentRepo.GetAll(ctx)
}

func (s *EnrollmentService) invalidate(ctx context.Context, studentID string) {
	if err := s.cache.InvalidateEnrollment(ctx, studentID); err != nil {
		log.Printf("[enrollment] cache invalidation failed for student %s: %v", studentID, err)
	}
}
