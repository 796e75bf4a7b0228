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

// MongoEnrollmentRepository implements domain.EnrollmentRepository over
// the user_courses collection
type MongoEnrollmentRepository struct {
	collection *mongo.Collection
}

func NewMongoEnrollmentRepository(db *mongo.Database) *MongoEnrollmentRepository {
	coll := db.Collection("user_courses")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// One live enrollment per student. The convention in the data layout
	// is not enforced upstream; the unique index closes that gap here.
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "payment_session_id", Value: 1}}},
	})

	return &MongoEnrollmentRepository{collection: coll}
}

func (r *MongoEnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	enrollment.CreatedAt = time.Now()
	enrollment.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, enrollment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEnrollmentExists
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		enrollment.ID = oid.Hex()
	}
	return nil
}

func (r *MongoEnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoEnrollmentRepository) GetByStudent(ctx context.Context, studentID string) (*domain.Enrollment, error) {
	return r.findOne(ctx, bson.M{"student_id": studentID})
}

func (r *MongoEnrollmentRepository) GetByPaymentSession(ctx context.Context, sessionID string) (*domain.Enrollment, error) {
	return r.findOne(ctx, bson.M{"payment_session_id": sessionID})
}

func (r *MongoEnrollmentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	if err := r.collection.FindOne(ctx, filter).Decode(&enrollment); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *MongoEnrollmentRepository) GetAll(ctx context.Context) ([]*domain.Enrollment, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoEnrollmentRepository) GetAwaitingConfirmation(ctx context.Context) ([]*domain.Enrollment, error) {
	return r.find(ctx, bson.M{
		"documents_uploaded":   true,
		"instructor_confirmed": false,
	})
}

func (r *MongoEnrollmentRepository) find(ctx context.Context, filter bson.M) ([]*domain.Enrollment, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer cursor.Close(ctx)

	var enrollments []*domain.Enrollment
	if err := cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *MongoEnrollmentRepository) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	return r.patch(ctx, id, bson.M{"payment_session_id": sessionID}, 0)
}

func (r *MongoEnrollmentRepository) SetPaymentStatus(ctx context.Context, id, status string, step int) error {
	return r.patch(ctx, id, bson.M{"payment_status": status}, step)
}

func (r *MongoEnrollmentRepository) SetDocumentsUploaded(ctx context.Context, id, documentURL string, step int) error {
	return r.patch(ctx, id, bson.M{
		"documents_uploaded": true,
		"document_url":       documentURL,
	}, step)
}

func (r *MongoEnrollmentRepository) SetInstructorConfirmed(ctx context.Context, id string, step int) error {
	return r.patch(ctx, id, bson.M{"instructor_confirmed": true}, step)
}

// patch applies a field-group update. The stored onboarding_step is
// written with $max so a concurrent writer can never regress it.
func (r *MongoEnrollmentRepository) patch(ctx context.Context, id string, set bson.M, step int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	set["updated_at"] = time.Now()
	update := bson.M{"$set": set}
	if step > 0 {
		update["$max"] = bson.M{"onboarding_step": step}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

func (r *MongoEnrollmentRepository) CountByPaymentStatus(ctx context.Context, status string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"payment_status": status})
}
