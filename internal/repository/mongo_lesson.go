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

// MongoLessonRepository implements domain.LessonRepository
type MongoLessonRepository struct {
	collection *mongo.Collection
}

func NewMongoLessonRepository(db *mongo.Database) *MongoLessonRepository {
	coll := db.Collection("lessons")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "student_id", Value: 1}}},
		{Keys: bson.D{{Key: "teacher_id", Value: 1}}},
	})

	return &MongoLessonRepository{collection: coll}
}

func (r *MongoLessonRepository) Create(ctx context.Context, lesson *domain.Lesson) error {
	lesson.CreatedAt = time.Now()
	lesson.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, lesson)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lesson.ID = oid.Hex()
	}
	return nil
}

func (r *MongoLessonRepository) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var lesson domain.Lesson
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&lesson); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrLessonNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *MongoLessonRepository) GetByStudent(ctx context.Context, studentID string) ([]*domain.Lesson, error) {
	return r.find(ctx, bson.M{"student_id": studentID})
}

func (r *MongoLessonRepository) GetByTeacher(ctx context.Context, teacherID string) ([]*domain.Lesson, error) {
	return r.find(ctx, bson.M{"teacher_id": teacherID})
}

func (r *MongoLessonRepository) GetByParty(ctx context.Context, profileID string) ([]*domain.Lesson, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"student_id": profileID},
		bson.M{"teacher_id": profileID},
	}})
}

func (r *MongoLessonRepository) GetAll(ctx context.Context) ([]*domain.Lesson, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoLessonRepository) find(ctx context.Context, filter bson.M) ([]*domain.Lesson, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "lesson_date", Value: 1},
		{Key: "lesson_time", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer cursor.Close(ctx)

	var lessons []*domain.Lesson
	if err := cursor.All(ctx, &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *MongoLessonRepository) UpdateSlot(ctx context.Context, id, date, lessonTime string) error {
	return r.patch(ctx, id, bson.M{
		"lesson_date": date,
		"lesson_time": lessonTime,
	})
}

func (r *MongoLessonRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.patch(ctx, id, bson.M{"status": status})
}

func (r *MongoLessonRepository) UpdateNotes(ctx context.Context, id, field, notes string) error {
	if field != "teacher_notes" && field != "student_notes" {
		return fmt.Errorf("unknown notes field %q", field)
	}
	return r.patch(ctx, id, bson.M{field: notes})
}

func (r *MongoLessonRepository) patch(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	set["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrLessonNotFound
	}
	return nil
}

func (r *MongoLessonRepository) CountByTeacher(ctx context.Context, teacherID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"teacher_id": teacherID})
}

func (r *MongoLessonRepository) CountReferencing(ctx context.Context, profileID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"$or": bson.A{
		bson.M{"student_id": profileID},
		bson.M{"teacher_id": profileID},
	}})
}
