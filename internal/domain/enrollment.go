package domain

import (
	"context"
	"errors"
	"time"
)

// Common Errors
var (
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrEnrollmentExists     = errors.New("student already has a live enrollment")
	ErrPaymentRequired      = errors.New("payment must be completed before uploading documents")
	ErrDocumentsRequired    = errors.New("documents must be uploaded before instructor confirmation")
	ErrNotConfirmed         = errors.New("enrollment is not confirmed by an instructor")
	ErrDocumentFlagPending  = errors.New("document stored but enrollment record not updated; retry the flag update")
	ErrDocumentMissing      = errors.New("document not found in storage")
	ErrPaymentSessionFailed = errors.New("payment session creation failed")
)

// Payment Status Constants
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Onboarding step ordinals. The stored step is an advisory cache; the
// boolean milestone flags are authoritative (see CurrentStep).
const (
	StepChooseCourse      = 1
	StepPayment           = 2
	StepUploadDocuments   = 3
	StepAwaitConfirmation = 4
	StepActive            = 5
	onboardingStepCount   = 5
)

// Enrollment tracks a student's progress from course selection to
// lesson-booking eligibility. One live record per student.
type Enrollment struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	StudentID           string    `bson:"student_id" json:"student_id"`
	CourseID            string    `bson:"course_id" json:"course_id"`
	PaymentStatus       string    `bson:"payment_status" json:"payment_status"`
	PaymentSessionID    string    `bson:"payment_session_id,omitempty" json:"payment_session_id,omitempty"`
	DocumentsUploaded   bool      `bson:"documents_uploaded" json:"documents_uploaded"`
	DocumentURL         string    `bson:"document_url,omitempty" json:"document_url,omitempty"`
	InstructorConfirmed bool      `bson:"instructor_confirmed" json:"instructor_confirmed"`
	OnboardingStep      int       `bson:"onboarding_step" json:"onboarding_step"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updated_at"`

	// Optional embedded course for list reads; nil means "not fetched",
	// never "course absent".
	Course *Course `bson:"course,omitempty" json:"course,omitempty"`
}

// CurrentStep derives the onboarding position from the milestone flags.
// The stored OnboardingStep field is not consulted.
func (e *Enrollment) CurrentStep() int {
	switch {
	case e == nil:
		return StepChooseCourse
	case e.InstructorConfirmed:
		return StepActive
	case e.DocumentsUploaded:
		return StepAwaitConfirmation
	case e.PaymentStatus == PaymentPaid:
		return StepUploadDocuments
	default:
		return StepPayment
	}
}

// ProgressPercentage mirrors the onboarding checklist: a step counts as
// completed from the same booleans that drive CurrentStep. Confirmation
// completes both the waiting step and the final step.
func (e *Enrollment) ProgressPercentage() float64 {
	completed := 0
	if e != nil {
		completed++ // course selected
		if e.PaymentStatus == PaymentPaid {
			completed++
		}
		if e.DocumentsUploaded {
			completed++
		}
		if e.InstructorConfirmed {
			completed += 2
		}
	}
	return float64(completed) / float64(onboardingStepCount) * 100
}

// Active reports whether the student may book lessons
func (e *Enrollment) Active() bool {
	return e != nil && e.InstructorConfirmed
}

// EnrollmentRepository defines operations on user_courses records.
// UpdateStep implementations must never let the stored step regress.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *Enrollment) error
	GetByID(ctx context.Context, id string) (*Enrollment, error)
	GetByStudent(ctx context.Context, studentID string) (*Enrollment, error)
	GetByPaymentSession(ctx context.Context, sessionID string) (*Enrollment, error)
	GetAll(ctx context.Context) ([]*Enrollment, error)
	GetAwaitingConfirmation(ctx context.Context) ([]*Enrollment, error)
	SetPaymentSession(ctx context.Context, id, sessionID string) error
	SetPaymentStatus(ctx context.Context, id, status string, step int) error
	SetDocumentsUploaded(ctx context.Context, id, documentURL string, step int) error
	SetInstructorConfirmed(ctx context.Context, id string, step int) error
	CountByPaymentStatus(ctx context.Context, status string) (int64, error)
}
