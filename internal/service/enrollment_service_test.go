package service

import (
	"context"
	"testing"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *fakeEnrollmentRepo, *fakeCourseRepo, *fakeProfileRepo, *fakeFileRepo, *fakeSaleCodeRepo) {
	t.Helper()
	enrollments := newFakeEnrollmentRepo()
	courses := newFakeCourseRepo()
	profiles := newFakeProfileRepo()
	files := newFakeFileRepo()
	saleCodes := newFakeSaleCodeRepo()

	svc := NewEnrollmentService(
		enrollments,
		courses,
		profiles,
		files,
		&MockCheckoutClient{},
		NewSaleCodeService(saleCodes),
		newTestCache(t),
	)
	return svc, enrollments, courses, profiles, files, saleCodes
}

func seedStudentAndCourse(t *testing.T, courses *fakeCourseRepo, profiles *fakeProfileRepo) (string, string) {
	t.Helper()
	ctx := context.Background()

	course := &domain.Course{Name: "Standard Course", Price: 500, DurationHours: 20, IsActive: true}
	require.NoError(t, courses.Create(ctx, course))

	student := &domain.Profile{Email: "student@test.dev", FirstName: "Sam", Role: domain.RoleStudent}
	require.NoError(t, profiles.Create(ctx, student))

	return student.ID, course.ID
}

func TestSelectCourse(t *testing.T) {
	svc, _, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	enrollment, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, enrollment.PaymentStatus)
	assert.Equal(t, domain.StepPayment, enrollment.CurrentStep())

	// second selection is rejected while the first enrollment lives
	_, err = svc.SelectCourse(ctx, studentID, courseID)
	assert.ErrorIs(t, err, domain.ErrEnrollmentExists)
}

func TestSelectCourseRejectsInactiveCourse(t *testing.T) {
	svc, _, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)
	require.NoError(t, courses.SetActive(ctx, courseID, false))

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	assert.ErrorIs(t, err, domain.ErrCourseInactive)
}

func TestPaymentWebhookAdvancesOnboarding(t *testing.T) {
	svc, _, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)

	initiation, err := svc.InitiatePayment(ctx, studentID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, initiation.SessionID)
	assert.NotEmpty(t, initiation.CheckoutURL)
	assert.Equal(t, int64(500), initiation.Amount)

	enrollment, err := svc.ConfirmPayment(ctx, initiation.SessionID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, enrollment.PaymentStatus)

	state, err := svc.GetOnboarding(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepUploadDocuments, state.CurrentStep)
	assert.InDelta(t, 40.0, state.Progress, 0.01)
}

func TestPaymentWebhookFailureKeepsStudentRetryable(t *testing.T) {
	svc, _, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	initiation, err := svc.InitiatePayment(ctx, studentID, "")
	require.NoError(t, err)

	enrollment, err := svc.ConfirmPayment(ctx, initiation.SessionID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, enrollment.PaymentStatus)

	state, err := svc.GetOnboarding(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, state.CurrentStep)

	// a retry can still open a fresh session
	_, err = svc.InitiatePayment(ctx, studentID, "")
	assert.NoError(t, err)
}

func TestPaymentWebhookReplayIsNoop(t *testing.T) {
	svc, repo, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	initiation, err := svc.InitiatePayment(ctx, studentID, "")
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, initiation.SessionID, true)
	require.NoError(t, err)

	// a replayed failure notification must not regress the paid state
	_, err = svc.ConfirmPayment(ctx, initiation.SessionID, false)
	require.NoError(t, err)

	stored, err := repo.GetByStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}

func TestInitiatePaymentWithSaleCode(t *testing.T) {
	svc, _, courses, profiles, _, saleCodes := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)

	code := &domain.SaleCode{Code: "SPRING20", DiscountPercentage: 20, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, saleCodes.Create(ctx, code))

	initiation, err := svc.InitiatePayment(ctx, studentID, "spring20")
	require.NoError(t, err)
	assert.Equal(t, int64(400), initiation.Amount)
	assert.Equal(t, 1, code.TimesUsed)
}

func TestInitiatePaymentRoundsFractionalPrices(t *testing.T) {
	svc, _, courses, profiles, _, saleCodes := newEnrollmentFixture(t)
	ctx := context.Background()

	course := &domain.Course{Name: "Refresher", Price: 549.50, DurationHours: 5, IsActive: true}
	require.NoError(t, courses.Create(ctx, course))
	student := &domain.Profile{Email: "frac@test.dev", FirstName: "Fran", Role: domain.RoleStudent}
	require.NoError(t, profiles.Create(ctx, student))

	_, err := svc.SelectCourse(ctx, student.ID, course.ID)
	require.NoError(t, err)

	initiation, err := svc.InitiatePayment(ctx, student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(550), initiation.Amount)

	// the discount applies before rounding: 549.50 * 0.8 = 439.6
	code := &domain.SaleCode{Code: "FRAC2025", DiscountPercentage: 20, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, saleCodes.Create(ctx, code))
	initiation, err = svc.InitiatePayment(ctx, student.ID, "FRAC2025")
	require.NoError(t, err)
	assert.Equal(t, int64(440), initiation.Amount)
}

func TestInitiatePaymentRejectsBadSaleCode(t *testing.T) {
	svc, _, courses, profiles, _, saleCodes := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)

	expired := time.Now().Add(-time.Hour)
	code := &domain.SaleCode{Code: "OLDCODE1", DiscountPercentage: 50, IsActive: true, ExpiresAt: &expired}
	require.NoError(t, saleCodes.Create(ctx, code))

	_, err = svc.InitiatePayment(ctx, studentID, "OLDCODE1")
	assert.ErrorIs(t, err, domain.ErrSaleCodeExpired)
}

func TestUploadDocumentRequiresPayment(t *testing.T) {
	svc, _, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	_, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)

	_, err = svc.UploadDocument(ctx, studentID, []byte("scan"), "licence.pdf", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrPaymentRequired)
}

func TestUploadDocumentStoresUnderStudentPrefix(t *testing.T) {
	svc, repo, courses, profiles, files, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	enrollment, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	require.NoError(t, repo.SetPaymentStatus(ctx, enrollment.ID, domain.PaymentPaid, domain.StepUploadDocuments))

	url, err := svc.UploadDocument(ctx, studentID, []byte("scan"), "licence.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Contains(t, url, studentID+"/")
	assert.Contains(t, url, ".pdf")
	assert.Len(t, files.uploads, 1)

	stored, err := repo.GetByStudent(ctx, studentID)
	require.NoError(t, err)
	assert.True(t, stored.DocumentsUploaded)
	assert.Equal(t, url, stored.DocumentURL)
	assert.Equal(t, domain.StepAwaitConfirmation, stored.CurrentStep())
}

func TestUploadDocumentPartialFailureIsRetryable(t *testing.T) {
	svc, repo, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	enrollment, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	require.NoError(t, repo.SetPaymentStatus(ctx, enrollment.ID, domain.PaymentPaid, domain.StepUploadDocuments))

	// object store write succeeds, record update fails
	repo.failFlag = true
	url, err := svc.UploadDocument(ctx, studentID, []byte("scan"), "licence.pdf", "application/pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentFlagPending)
	assert.NotEmpty(t, url)

	stored, _ := repo.GetByStudent(ctx, studentID)
	assert.False(t, stored.DocumentsUploaded)

	// the retry path flags the already-stored document without re-upload
	repo.failFlag = false
	require.NoError(t, svc.RetryDocumentFlag(ctx, studentID, url))

	stored, _ = repo.GetByStudent(ctx, studentID)
	assert.True(t, stored.DocumentsUploaded)
	assert.Equal(t, url, stored.DocumentURL)
}

func TestRetryDocumentFlagRejectsUnknownURL(t *testing.T) {
	svc, repo, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	enrollment, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)
	require.NoError(t, repo.SetPaymentStatus(ctx, enrollment.ID, domain.PaymentPaid, domain.StepUploadDocuments))

	// a URL the store never issued must not be flagged as uploaded
	err = svc.RetryDocumentFlag(ctx, studentID, "https://files.test/never-stored.pdf")
	assert.ErrorIs(t, err, domain.ErrDocumentMissing)

	stored, _ := repo.GetByStudent(ctx, studentID)
	assert.False(t, stored.DocumentsUploaded)
}

func TestConfirmInstructor(t *testing.T) {
	svc, repo, courses, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	studentID, courseID := seedStudentAndCourse(t, courses, profiles)

	enrollment, err := svc.SelectCourse(ctx, studentID, courseID)
	require.NoError(t, err)

	// confirmation before documents is rejected
	err = svc.ConfirmInstructor(ctx, enrollment.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentsRequired)

	require.NoError(t, repo.SetPaymentStatus(ctx, enrollment.ID, domain.PaymentPaid, domain.StepUploadDocuments))
	require.NoError(t, repo.SetDocumentsUploaded(ctx, enrollment.ID, "https://files.test/doc.pdf", domain.StepAwaitConfirmation))

	require.NoError(t, svc.ConfirmInstructor(ctx, enrollment.ID))

	state, err := svc.GetOnboarding(ctx, studentID)
	require.NoError(t, err)
	assert.True(t, state.Active)
	assert.Equal(t, domain.StepActive, state.CurrentStep)
	assert.InDelta(t, 100.0, state.Progress, 0.01)

	// confirming twice is idempotent
	assert.NoError(t, svc.ConfirmInstructor(ctx, enrollment.ID))
}

func TestGetOnboardingWithoutEnrollment(t *testing.T) {
	svc, _, _, profiles, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()

	student := &domain.Profile{Email: "new@test.dev", Role: domain.RoleStudent}
	require.NoError(t, profiles.Create(ctx, student))

	state, err := svc.GetOnboarding(ctx, student.ID)
	require.NoError(t, err)
	assert.Nil(t, state.Enrollment)
	assert.Equal(t, domain.StepChooseCourse, state.CurrentStep)
	assert.InDelta(t, 0.0, state.Progress, 0.01)
	assert.False(t, state.Active)
}
