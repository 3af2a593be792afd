package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/educlove/educlove-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type VisitRepository interface {
	// Upsert records a visit, refreshing visited_at when the (user,
	// profile) pair already exists. The TTL clock restarts either way.
	Upsert(ctx context.Context, userID, visitedProfileID string) (string, error)
	Has(ctx context.Context, userID, visitedProfileID string) (bool, error)
	List(ctx context.Context, userID string, limit, skip int64) ([]models.ProfileVisit, error)
	VisitedIDs(ctx context.Context, userID string) ([]string, error)
	Count(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, visitedProfileID string) (bool, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type visitRepo struct {
	col *mongo.Collection
}

func NewVisitRepo(db *mongo.Database) VisitRepository {
	return &visitRepo{col: db.Collection("profile_visits")}
}

func (r *visitRepo) Upsert(ctx context.Context, userID, visitedProfileID string) (string, error) {
	key := bson.M{"user_id": userID, "visited_profile_id": visitedProfileID}
	update := bson.M{"$set": bson.M{"visited_at": time.Now().UTC()}}

	res, err := r.col.UpdateOne(ctx, key, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// two first-time visits raced on the unique index; the loser
		// refreshes the record the winner just inserted
		res, err = r.col.UpdateOne(ctx, key, update, options.Update().SetUpsert(true))
	}
	if err != nil {
		return "", err
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}

	// existing record: timestamp refreshed in place
	var v models.ProfileVisit
	if err := r.col.FindOne(ctx, key).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}
	return v.ID.Hex(), nil
}

func (r *visitRepo) Has(ctx context.Context, userID, visitedProfileID string) (bool, error) {
	n, err := r.col.CountDocuments(ctx,
		bson.M{"user_id": userID, "visited_profile_id": visitedProfileID},
		options.Count().SetLimit(1),
	)
	return n > 0, err
}

func (r *visitRepo) List(ctx context.Context, userID string, limit, skip int64) ([]models.ProfileVisit, error) {
	if limit <= 0 {
		limit = 100
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "visited_at", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ProfileVisit
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *visitRepo) VisitedIDs(ctx context.Context, userID string) ([]string, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetProjection(bson.M{"visited_profile_id": 1, "_id": 0}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			VisitedProfileID string `bson:"visited_profile_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.VisitedProfileID)
	}
	return ids, cur.Err()
}

func (r *visitRepo) Count(ctx context.Context, userID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"user_id": userID})
}

func (r *visitRepo) Delete(ctx context.Context, userID, visitedProfileID string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID, "visited_profile_id": visitedProfileID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *visitRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
