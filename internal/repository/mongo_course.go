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

// MongoCourseRepository implements domain.CourseRepository
type MongoCourseRepository struct {
	collection *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) *MongoCourseRepository {
	return &MongoCourseRepository{collection: db.Collection("courses")}
}

func (r *MongoCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	course.CreatedAt = time.Now()
	course.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, course)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		course.ID = oid.Hex()
	}
	return nil
}

func (r *MongoCourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var course domain.Course
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&course); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *MongoCourseRepository) GetActive(ctx context.Context) ([]*domain.Course, error) {
	return r.find(ctx, bson.M{"is_active": true})
}

func (r *MongoCourseRepository) GetAll(ctx context.Context) ([]*domain.Course, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoCourseRepository) find(ctx context.Context, filter bson.M) ([]*domain.Course, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer cursor.Close(ctx)

	var courses []*domain.Course
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *MongoCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	oid, err := primitive.ObjectIDFromHex(course.ID)
	if err != nil {
		return domain.ErrInvalidID
	}
	course.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"name":           course.Name,
			"description":    course.Description,
			"price":          course.Price,
			"duration_hours": course.DurationHours,
			"is_active":      course.IsActive,
			"updated_at":     course.UpdatedAt,
		},
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}

func (r *MongoCourseRepository) SetActive(ctx context.Context, id string, active bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{
			"is_active":  active,
			"updated_at": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update course visibility: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCourseNotFound
	}
	return nil
}
