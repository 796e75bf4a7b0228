package domain

import (
	"context"
	"errors"
	"time"
)

// ErrProfileInUse is returned when deleting a profile that lessons
// still reference
var ErrProfileInUse = errors.New("profile is referenced by lessons and cannot be deleted")

// Profile represents a platform identity with a single role
type Profile struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	FirebaseUID         string    `bson:"firebase_uid,omitempty" json:"firebase_uid"`
	Email               string    `bson:"email" json:"email"`
	FirstName           string    `bson:"first_name" json:"first_name"`
	LastName            string    `bson:"last_name" json:"last_name"`
	Role                string    `bson:"role" json:"role"` // "student", "teacher", "admin"
	PhoneNumber         string    `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Address             string    `bson:"address,omitempty" json:"address,omitempty"`
	AvatarURL           string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	EmailNotifications  bool      `bson:"email_notifications" json:"email_notifications"`
	MobileNotifications bool      `bson:"mobile_notifications" json:"mobile_notifications"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName returns the display name, falling back to email
func (p *Profile) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Email
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ProfileRepository defines operations for managing profiles
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*Profile, error)
	Update(ctx context.Context, profile *Profile) error
	UpdateFirebaseUID(ctx context.Context, profileID string, firebaseUID string) error
	Delete(ctx context.Context, id string) error

	GetAll(ctx context.Context) ([]*Profile, error)
	GetByRole(ctx context.Context, role string) ([]*Profile, error)
}

// Role constants
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the known role tags
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
