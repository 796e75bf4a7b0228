package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/driveline/driveline/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProfileRepository implements domain.ProfileRepository
type MongoProfileRepository struct {
	collection *mongo.Collection
}

func NewMongoProfileRepository(db *mongo.Database) *MongoProfileRepository {
	coll := db.Collection("profiles")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Unique indexes on email and firebase_uid; firebase_uid is sparse so
	// pre-provisioned accounts without a linked login are allowed.
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role", Value: 1}}},
	})

	return &MongoProfileRepository{collection: coll}
}

func (r *MongoProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = time.Now()
	objID := primitive.NewObjectID()
	profile.ID = objID.Hex()

	doc := bson.M{
		"_id":                  objID,
		"email":                profile.Email,
		"first_name":           profile.FirstName,
		"last_name":            profile.LastName,
		"role":                 profile.Role,
		"phone_number":         profile.PhoneNumber,
		"address":              profile.Address,
		"avatar_url":           profile.AvatarURL,
		"email_notifications":  profile.EmailNotifications,
		"mobile_notifications": profile.MobileNotifications,
		"created_at":           profile.CreatedAt,
		"updated_at":           profile.UpdatedAt,
	}
	if profile.FirebaseUID != "" {
		doc["firebase_uid"] = profile.FirebaseUID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *MongoProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *MongoProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoProfileRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid})
}

func (r *MongoProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.Profile, error) {
	var raw bson.M
	if err := r.collection.FindOne(ctx, filter).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return mapBsonToProfile(raw), nil
}

func (r *MongoProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	objID, err := primitive.ObjectIDFromHex(profile.ID)
	if err != nil {
		return domain.ErrInvalidID
	}
	profile.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"first_name":           profile.FirstName,
			"last_name":            profile.LastName,
			"role":                 profile.Role,
			"phone_number":         profile.PhoneNumber,
			"address":              profile.Address,
			"avatar_url":           profile.AvatarURL,
			"email_notifications":  profile.EmailNotifications,
			"mobile_notifications": profile.MobileNotifications,
			"updated_at":           profile.UpdatedAt,
		},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoProfileRepository) UpdateFirebaseUID(ctx context.Context, profileID string, firebaseUID string) error {
	objID, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return domain.ErrInvalidID
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"firebase_uid": firebaseUID,
			"updated_at":   time.Now(),
		},
	})
	return err
}

func (r *MongoProfileRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoProfileRepository) GetAll(ctx context.Context) ([]*domain.Profile, error) {
	return r.findAll(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *MongoProfileRepository) GetByRole(ctx context.Context, role string) ([]*domain.Profile, error) {
	return r.findAll(ctx, bson.M{"role": role}, options.Find().SetSort(bson.D{{Key: "first_name", Value: 1}}))
}

func (r *MongoProfileRepository) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Profile, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	profiles := make([]*domain.Profile, 0, len(raws))
	for _, raw := range raws {
		profiles = append(profiles, mapBsonToProfile(raw))
	}
	return profiles, nil
}

// mapBsonToProfile tolerates partially-populated documents from older writes
func mapBsonToProfile(raw bson.M) *domain.Profile {
	p := &domain.Profile{}
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	if v, ok := raw["firebase_uid"].(string); ok {
		p.FirebaseUID = v
	}
	if v, ok := raw["email"].(string); ok {
		p.Email = v
	}
	if v, ok := raw["first_name"].(string); ok {
		p.FirstName = v
	}
	if v, ok := raw["last_name"].(string); ok {
		p.LastName = v
	}
	if v, ok := raw["role"].(string); ok {
		p.Role = v
	}
	if v, ok := raw["phone_number"].(string); ok {
		p.PhoneNumber = v
	}
	if v, ok := raw["address"].(string); ok {
		p.Address = v
	}
	if v, ok := raw["avatar_url"].(string); ok {
		p.AvatarURL = v
	}
	if v, ok := raw["email_notifications"].(bool); ok {
		p.EmailNotifications = v
	}
	if v, ok := raw["mobile_notifications"].(bool); ok {
		p.MobileNotifications = v
	}
	if v, ok := raw["created_at"].(primitive.DateTime); ok {
		p.CreatedAt = v.Time()
	}
	if v, ok := raw["updated_at"].(primitive.DateTime); ok {
		p.UpdatedAt = v.Time()
	}
	return p
}
