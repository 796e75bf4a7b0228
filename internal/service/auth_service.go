package service

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/driveline/driveline/internal/domain"
)

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService handles authentication and profile registration
type AuthService struct {
	profileRepo domain.ProfileRepository
	authClient  FirebaseAuthClient
}

// NewAuthService creates a new auth service
func NewAuthService(profileRepo domain.ProfileRepository, authClient FirebaseAuthClient) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		authClient:  authClient,
	}
}

// LoginOrRegisterRequest contains the request params
type LoginOrRegisterRequest struct {
	FirebaseToken string
	FirstName     string
	LastName      string
}

// LoginOrRegisterResponse contains the profile and whether it was newly created
type LoginOrRegisterResponse struct {
	Profile   *domain.Profile
	IsNewUser bool
}

// LoginOrRegister verifies the Firebase ID token and resolves the caller
// to exactly one profile, creating a student profile on first login.
func (s *AuthService) LoginOrRegister(ctx context.Context, req LoginOrRegisterRequest) (*LoginOrRegisterResponse, error) {
	// Step 1: Verify Firebase token and extract user info
	token, err := s.authClient.VerifyIDToken(ctx, req.FirebaseToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	firebaseUID := token.UID
	email, _ := token.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("token has no email claim")
	}

	// Step 2: Search for existing profile by firebase_uid
	existing, err := s.profileRepo.GetByFirebaseUID(ctx, firebaseUID)

	// Step 3: If not found by firebase_uid, try email. Admins and teachers
	// are pre-provisioned by email before their first login.
	if err != nil && err == domain.ErrNotFound {
		emailProfile, emailErr := s.profileRepo.GetByEmail(ctx, email)
		if emailErr == nil && emailProfile != nil {
			if emailProfile.FirebaseUID == "" {
				if updateErr := s.profileRepo.UpdateFirebaseUID(ctx, emailProfile.ID, firebaseUID); updateErr != nil {
					return nil, fmt.Errorf("failed to link firebase account: %w", updateErr)
				}
				emailProfile.FirebaseUID = firebaseUID
				existing = emailProfile
				err = nil
			} else {
				return nil, fmt.Errorf("email already linked to different account")
			}
		}
	}

	// Step 4: Login existing profile
	if err == nil && existing != nil {
		return &LoginOrRegisterResponse{Profile: existing, IsNewUser: false}, nil
	}
	if err != nil && err != domain.ErrNotFound {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	// Step 5: First login, register as a student. Every profile carries
	// exactly one role; elevated roles are assigned by an admin.
	firstName, lastName := req.FirstName, req.LastName
	if firstName == "" {
		if name, _ := token.Claims["name"].(string); name != "" {
			firstName = name
		} else {
			firstName = email
		}
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		FirebaseUID:         firebaseUID,
		Email:               email,
		FirstName:           firstName,
		LastName:            lastName,
		Role:                domain.RoleStudent,
		EmailNotifications:  true,
		MobileNotifications: false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &LoginOrRegisterResponse{Profile: profile, IsNewUser: true}, nil
}

// ResolveRole returns the single role tag for a profile id. A missing
// profile resolves to ErrNotFound, never to a default role.
func (s *AuthService) ResolveRole(ctx context.Context, profileID string) (string, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}
