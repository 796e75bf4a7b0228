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

// MongoSaleCodeRepository implements domain.SaleCodeRepository
type MongoSaleCodeRepository struct {
	collection *mongo.Collection
}

func NewMongoSaleCodeRepository(db *mongo.Database) *MongoSaleCodeRepository {
	coll := db.Collection("sale_codes")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoSaleCodeRepository{collection: coll}
}

func (r *MongoSaleCodeRepository) Create(ctx context.Context, code *domain.SaleCode) error {
	code.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to create sale code: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		code.ID = oid.Hex()
	}
	return nil
}

func (r *MongoSaleCodeRepository) GetByCode(ctx context.Context, code string) (*domain.SaleCode, error) {
	var sc domain.SaleCode
	if err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&sc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSaleCodeNotFound
		}
		return nil, err
	}
	return &sc, nil
}

func (r *MongoSaleCodeRepository) GetAll(ctx context.Context) ([]*domain.SaleCode, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale codes: %w", err)
	}
	defer cursor.Close(ctx)

	var codes []*domain.SaleCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *MongoSaleCodeRepository) Deactivate(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"is_active": false},
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate sale code: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSaleCodeNotFound
	}
	return nil
}

func (r *MongoSaleCodeRepository) IncrementUsage(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$inc": bson.M{"times_used": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to increment sale code usage: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSaleCodeNotFound
	}
	return nil
}
