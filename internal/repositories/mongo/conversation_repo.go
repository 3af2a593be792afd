package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/educlove/educlove-backend/internal/models"
	"github.com/educlove/educlove-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository exposes bucket-level primitives; the capacity
// orchestration (which bucket, when to roll over, retry on a lost race)
// lives in the conversation service.
type ConversationRepository interface {
	// InsertBucket creates a bucket. The unique (match_id, bucket_number)
	// index turns a concurrent duplicate into utils.ErrConflict.
	InsertBucket(ctx context.Context, b *models.ConversationBucket) (string, error)
	// LatestBucket returns the highest-numbered bucket for a match, or
	// (nil, nil) when the conversation does not exist yet.
	LatestBucket(ctx context.Context, matchID string) (*models.ConversationBucket, error)
	// AppendIfBelowCapacity pushes a message and increments message_count
	// in one conditional update, matching only while the bucket still has
	// spare capacity. Reports whether the append happened.
	AppendIfBelowCapacity(ctx context.Context, bucketID primitive.ObjectID, capacity int, msg models.Message) (bool, error)
	BucketsAsc(ctx context.Context, matchID string) ([]models.ConversationBucket, error)
	BucketsDesc(ctx context.Context, matchID string) ([]models.ConversationBucket, error)
	Exists(ctx context.Context, matchID string) (bool, error)
	DeleteAll(ctx context.Context, matchID string) (int64, error)
}

type conversationRepo struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepository {
	return &conversationRepo{col: db.Collection("conversations")}
}

func (r *conversationRepo) InsertBucket(ctx context.Context, b *models.ConversationBucket) (string, error) {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", utils.ErrConflict
		}
		return "", err
	}
	id := res.InsertedID.(primitive.ObjectID)
	b.ID = id
	return id.Hex(), nil
}

func (r *conversationRepo) LatestBucket(ctx context.Context, matchID string) (*models.ConversationBucket, error) {
	var b models.ConversationBucket
	err := r.col.FindOne(ctx,
		bson.M{"match_id": matchID},
		options.FindOne().SetSort(bson.D{{Key: "bucket_number", Value: -1}}),
	).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *conversationRepo) AppendIfBelowCapacity(ctx context.Context, bucketID primitive.ObjectID, capacity int, msg models.Message) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{
			"_id":           bucketID,
			"message_count": bson.M{"$lt": capacity},
		},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$inc":  bson.M{"message_count": 1},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *conversationRepo) BucketsAsc(ctx context.Context, matchID string) ([]models.ConversationBucket, error) {
	return r.buckets(ctx, matchID, 1)
}

func (r *conversationRepo) BucketsDesc(ctx context.Context, matchID string) ([]models.ConversationBucket, error) {
	return r.buckets(ctx, matchID, -1)
}

func (r *conversationRepo) buckets(ctx context.Context, matchID string, order int) ([]models.ConversationBucket, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"match_id": matchID},
		options.Find().SetSort(bson.D{{Key: "bucket_number", Value: order}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConversationBucket
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) Exists(ctx context.Context, matchID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"match_id": matchID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *conversationRepo) DeleteAll(ctx context.Context, matchID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"match_id": matchID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
