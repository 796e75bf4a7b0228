package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
	"github.com/redis/go-redis/v9"
)

// newTestCache backs the cache repository with miniredis
func newTestCache(t *testing.T) *repository.RedisCacheRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewRedisCacheRepository(client)
}

type fakeProfileRepo struct {
	profiles map[string]*domain.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (f *fakeProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	if p.ID == "" {
		p.ID = fmt.Sprintf("profile-%d", len(f.profiles)+1)
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	for _, p := range f.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProfileRepo) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Profile, error) {
	for _, p := range f.profiles {
		if p.FirebaseUID == uid {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	if _, ok := f.profiles[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.profiles[p.ID] = p
	return nil
}

func (f *fakeProfileRepo) UpdateFirebaseUID(ctx context.Context, id, uid string) error {
	p, ok := f.profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.FirebaseUID = uid
	return nil
}

func (f *fakeProfileRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.profiles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.profiles, id)
	return nil
}

func (f *fakeProfileRepo) GetAll(ctx context.Context) ([]*domain.Profile, error) {
	var out []*domain.Profile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfileRepo) GetByRole(ctx context.Context, role string) ([]*domain.Profile, error) {
	var out []*domain.Profile
	for _, p := range f.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCourseRepo struct {
	courses map[string]*domain.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[string]*domain.Course)}
}

func (f *fakeCourseRepo) Create(ctx context.Context, c *domain.Course) error {
	if c.ID == "" {
		c.ID = fmt.Sprintf("course-%d", len(f.courses)+1)
	}
	f.courses[c.ID] = c
	return nil
}

func (f *fakeCourseRepo) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCourseNotFound
}

func (f *fakeCourseRepo) GetActive(ctx context.Context) ([]*domain.Course, error) {
	var out []*domain.Course
	for _, c := range f.courses {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourseRepo) GetAll(ctx context.Context) ([]*domain.Course, error) {
	var out []*domain.Course
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourseRepo) Update(ctx context.Context, c *domain.Course) error {
	if _, ok := f.courses[c.ID]; !ok {
		return domain.ErrCourseNotFound
	}
	f.courses[c.ID] = c
	return nil
}

func (f *fakeCourseRepo) SetActive(ctx context.Context, id string, active bool) error {
	c, ok := f.courses[id]
	if !ok {
		return domain.ErrCourseNotFound
	}
	c.IsActive = active
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments map[string]*domain.Enrollment
	failFlag    bool  // when set, SetDocumentsUploaded fails
	readErr     error // when set, reads fail with this error
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]*domain.Enrollment)}
}

func (f *fakeEnrollmentRepo) Create(ctx context.Context, e *domain.Enrollment) error {
	for _, existing := range f.enrollments {
		if existing.StudentID == e.StudentID {
			return domain.ErrEnrollmentExists
		}
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("enrollment-%d", len(f.enrollments)+1)
	}
	f.enrollments[e.ID] = e
	return nil
}

func (f *fakeEnrollmentRepo) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (f *fakeEnrollmentRepo) GetByStudent(ctx context.Context, studentID string) (*domain.Enrollment, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, e := range f.enrollments {
		if e.StudentID == studentID {
			return e, nil
		}
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (f *fakeEnrollmentRepo) GetByPaymentSession(ctx context.Context, sessionID string) (*domain.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.PaymentSessionID == sessionID {
			return e, nil
		}
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (f *fakeEnrollmentRepo) GetAll(ctx context.Context) ([]*domain.Enrollment, error) {
	var out []*domain.Enrollment
	for _, e := range f.enrollments {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) GetAwaitingConfirmation(ctx context.Context) ([]*domain.Enrollment, error) {
	var out []*domain.Enrollment
	for _, e := range f.enrollments {
		if e.DocumentsUploaded && !e.InstructorConfirmed {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	e, ok := f.enrollments[id]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.PaymentSessionID = sessionID
	return nil
}

func (f *fakeEnrollmentRepo) SetPaymentStatus(ctx context.Context, id, status string, step int) error {
	e, ok := f.enrollments[id]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.PaymentStatus = status
	if step > e.OnboardingStep {
		e.OnboardingStep = step
	}
	return nil
}

func (f *fakeEnrollmentRepo) SetDocumentsUploaded(ctx context.Context, id, documentURL string, step int) error {
	if f.failFlag {
		return errors.New("write failed")
	}
	e, ok := f.enrollments[id]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.DocumentsUploaded = true
	e.DocumentURL = documentURL
	if step > e.OnboardingStep {
		e.OnboardingStep = step
	}
	return nil
}

func (f *fakeEnrollmentRepo) SetInstructorConfirmed(ctx context.Context, id string, step int) error {
	e, ok := f.enrollments[id]
	if !ok {
		return domain.ErrEnrollmentNotFound
	}
	e.InstructorConfirmed = true
	if step > e.OnboardingStep {
		e.OnboardingStep = step
	}
	return nil
}

func (f *fakeEnrollmentRepo) CountByPaymentStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, e := range f.enrollments {
		if e.PaymentStatus == status {
			n++
		}
	}
	return n, nil
}

type fakeLessonRepo struct {
	lessons map[string]*domain.Lesson
}

func newFakeLessonRepo() *fakeLessonRepo {
	return &fakeLessonRepo{lessons: make(map[string]*domain.Lesson)}
}

func (f *fakeLessonRepo) Create(ctx context.Context, l *domain.Lesson) error {
	if l.ID == "" {
		l.ID = fmt.Sprintf("lesson-%d", len(f.lessons)+1)
	}
	f.lessons[l.ID] = l
	return nil
}

func (f *fakeLessonRepo) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	if l, ok := f.lessons[id]; ok {
		return l, nil
	}
	return nil, domain.ErrLessonNotFound
}

func (f *fakeLessonRepo) GetByStudent(ctx context.Context, studentID string) ([]*domain.Lesson, error) {
	return f.filter(func(l *domain.Lesson) bool { return l.StudentID == studentID }), nil
}

func (f *fakeLessonRepo) GetByTeacher(ctx context.Context, teacherID string) ([]*domain.Lesson, error) {
	return f.filter(func(l *domain.Lesson) bool { return l.TeacherID == teacherID }), nil
}

func (f *fakeLessonRepo) GetByParty(ctx context.Context, profileID string) ([]*domain.Lesson, error) {
	return f.filter(func(l *domain.Lesson) bool { return l.Party(profileID) }), nil
}

func (f *fakeLessonRepo) GetAll(ctx context.Context) ([]*domain.Lesson, error) {
	return f.filter(func(l *domain.Lesson) bool { return true }), nil
}

func (f *fakeLessonRepo) UpdateSlot(ctx context.Context, id, date, lessonTime string) error {
	l, ok := f.lessons[id]
	if !ok {
		return domain.ErrLessonNotFound
	}
	l.LessonDate = date
	l.LessonTime = lessonTime
	return nil
}

func (f *fakeLessonRepo) UpdateStatus(ctx context.Context, id, status string) error {
	l, ok := f.lessons[id]
	if !ok {
		return domain.ErrLessonNotFound
	}
	l.Status = status
	return nil
}

func (f *fakeLessonRepo) UpdateNotes(ctx context.Context, id, field, notes string) error {
	l, ok := f.lessons[id]
	if !ok {
		return domain.ErrLessonNotFound
	}
	switch field {
	case "teacher_notes":
		l.TeacherNotes = notes
	case "student_notes":
		l.StudentNotes = notes
	default:
		return fmt.Errorf("unknown notes field %q", field)
	}
	return nil
}

func (f *fakeLessonRepo) CountByTeacher(ctx context.Context, teacherID string) (int64, error) {
	return int64(len(f.filter(func(l *domain.Lesson) bool { return l.TeacherID == teacherID }))), nil
}

func (f *fakeLessonRepo) CountReferencing(ctx context.Context, profileID string) (int64, error) {
	return int64(len(f.filter(func(l *domain.Lesson) bool { return l.Party(profileID) }))), nil
}

func (f *fakeLessonRepo) filter(keep func(*domain.Lesson) bool) []*domain.Lesson {
	var out []*domain.Lesson
	for _, l := range f.lessons {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LessonDate != out[j].LessonDate {
			return out[i].LessonDate < out[j].LessonDate
		}
		return out[i].LessonTime < out[j].LessonTime
	})
	return out
}

type fakeSaleCodeRepo struct {
	codes map[string]*domain.SaleCode
}

func newFakeSaleCodeRepo() *fakeSaleCodeRepo {
	return &fakeSaleCodeRepo{codes: make(map[string]*domain.SaleCode)}
}

func (f *fakeSaleCodeRepo) Create(ctx context.Context, c *domain.SaleCode) error {
	if c.ID == "" {
		c.ID = fmt.Sprintf("code-%d", len(f.codes)+1)
	}
	f.codes[c.ID] = c
	return nil
}

func (f *fakeSaleCodeRepo) GetByCode(ctx context.Context, code string) (*domain.SaleCode, error) {
	for _, c := range f.codes {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, domain.ErrSaleCodeNotFound
}

func (f *fakeSaleCodeRepo) GetAll(ctx context.Context) ([]*domain.SaleCode, error) {
	var out []*domain.SaleCode
	for _, c := range f.codes {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeSaleCodeRepo) Deactivate(ctx context.Context, id string) error {
	c, ok := f.codes[id]
	if !ok {
		return domain.ErrSaleCodeNotFound
	}
	c.IsActive = false
	return nil
}

func (f *fakeSaleCodeRepo) IncrementUsage(ctx context.Context, id string) error {
	c, ok := f.codes[id]
	if !ok {
		return domain.ErrSaleCodeNotFound
	}
	c.TimesUsed++
	return nil
}

type fakeFileRepo struct {
	uploads map[string][]byte
	failing bool
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{uploads: make(map[string][]byte)}
}

func (f *fakeFileRepo) Upload(ctx context.Context, file []byte, filename, contentType string) (string, error) {
	if f.failing {
		return "", errors.New("object store unavailable")
	}
	f.uploads[filename] = file
	return "https://files.test/" + filename, nil
}

func (f *fakeFileRepo) Exists(ctx context.Context, url string) (bool, error) {
	key := strings.TrimPrefix(url, "https://files.test/")
	_, ok := f.uploads[key]
	return ok, nil
}

// seedTime is a fixed future date usable in lesson slot fields
func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(domain.LessonDateLayout)
}
