package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"github.com/driveline/driveline/internal/repository"
)

// UserService manages profiles: self-service updates plus the admin roster
type UserService struct {
	profileRepo domain.ProfileRepository
	lessonRepo  domain.LessonRepository
	cache       *repository.RedisCacheRepository
}

// NewUserService creates a new user service
func NewUserService(
	profileRepo domain.ProfileRepository,
	lessonRepo domain.LessonRepository,
	cache *repository.RedisCacheRepository,
) *UserService {
	return &UserService{
		profileRepo: profileRepo,
		lessonRepo:  lessonRepo,
		cache:       cache,
	}
}

// GetProfile fetches a single profile
func (s *UserService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// UpdateProfileRequest carries the self-editable profile fields
type UpdateProfileRequest struct {
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	PhoneNumber         string `json:"phone_number"`
	Address             string `json:"address"`
	AvatarURL           string `json:"avatar_url"`
	EmailNotifications  *bool  `json:"email_notifications"`
	MobileNotifications *bool  `json:"mobile_notifications"`
}

// UpdateProfile applies self-service edits. Role and email are not
// touchable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		profile.FirstName = req.FirstName
	}
	if req.LastName != "" {
		profile.LastName = req.LastName
	}
	if req.PhoneNumber != "" {
		profile.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		profile.Address = req.Address
	}
	if req.AvatarURL != "" {
		profile.AvatarURL = req.AvatarURL
	}
	if req.EmailNotifications != nil {
		profile.EmailNotifications = *req.EmailNotifications
	}
	if req.MobileNotifications != nil {
		profile.MobileNotifications = *req.MobileNotifications
	}
	profile.UpdatedAt = time.Now().UTC()

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	s.invalidate(ctx, id)
	return profile, nil
}

// ListUsers returns every profile, newest first. Admin roster.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.Profile, error) {
	return s.profileRepo.GetAll(ctx)
}

// ListByRole returns profiles holding the given role, sorted by name
func (s *UserService) ListByRole(ctx context.Context, role string) ([]*domain.Profile, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return s.profileRepo.GetByRole(ctx, role)
}

// AssignRole changes a profile's single role tag. Admin only; existing
// sessions keep their old role until the next token refresh.
func (s *UserService) AssignRole(ctx context.Context, id, role string) error {
	if !domain.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if profile.Role == role {
		return nil
	}

	profile.Role = role
	profile.UpdatedAt = time.Now().UTC()
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// CreateProvisionedUser pre-registers a teacher or admin by email. The
// Firebase account links up on their first login.
func (s *UserService) CreateProvisionedUser(ctx context.Context, email, firstName, lastName, role string) (*domain.Profile, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		Email:              email,
		FirstName:          firstName,
		LastName:           lastName,
		Role:               role,
		EmailNotifications: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// DeleteUser removes a profile. Profiles referenced by any lesson are
// kept so lesson history stays resolvable.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	count, err := s.lessonRepo.CountReferencing(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check lesson references: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d lessons", domain.ErrProfileInUse, count)
	}

	if err := s.profileRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *UserService) invalidate(ctx context.Context, profileID string) {
	if err := s.cache.InvalidateProfile(ctx, profileID); err != nil {
		log.Printf("[user] cache invalidation failed for profile %s: %v", profileID, err)
	}
}
