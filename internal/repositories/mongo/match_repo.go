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

type MatchRepository interface {
	// Insert creates a directed edge. The unique (initiator, target) index
	// turns a concurrent duplicate into utils.ErrConflict.
	Insert(ctx context.Context, m *models.Match) (string, error)
	GetByID(ctx context.Context, matchID string) (*models.Match, error)
	// FindByPair returns the edge initiator→target, or (nil, nil) when no
	// such edge exists.
	FindByPair(ctx context.Context, initiatorProfileID, targetProfileID string) (*models.Match, error)
	// AcceptIfPending flips a match to accepted only while it is still
	// pending; reports whether a document was matched.
	AcceptIfPending(ctx context.Context, matchID string) (bool, error)
	UpdateStatus(ctx context.Context, matchID string, status models.MatchStatus) (bool, error)
	ListForProfile(ctx context.Context, profileID string, status *models.MatchStatus, direction *models.MatchDirection) ([]models.Match, error)
}

type matchRepo struct {
	col *mongo.Collection
}

func NewMatchRepo(db *mongo.Database) MatchRepository {
	return &matchRepo{col: db.Collection("matches")}
}

func (r *matchRepo) Insert(ctx context.Context, m *models.Match) (string, error) {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", utils.ErrConflict
		}
		return "", err
	}
	id := res.InsertedID.(primitive.ObjectID)
	m.ID = id
	return id.Hex(), nil
}

func (r *matchRepo) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	oid, err := primitive.ObjectIDFromHex(matchID)
	if err != nil {
		return nil, utils.ErrNotFound
	}

	var m models.Match
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepo) FindByPair(ctx context.Context, initiatorProfileID, targetProfileID string) (*models.Match, error) {
	var m models.Match
	err := r.col.FindOne(ctx, bson.M{
		"initiator_profile_id": initiatorProfileID,
		"target_profile_id":    targetProfileID,
	}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepo) AcceptIfPending(ctx context.Context, matchID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(matchID)
	if err != nil {
		return false, utils.ErrNotFound
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "status": models.MatchPending},
		bson.M{"$set": bson.M{
			"status":     models.MatchAccepted,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *matchRepo) UpdateStatus(ctx context.Context, matchID string, status models.MatchStatus) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(matchID)
	if err != nil {
		return false, utils.ErrNotFound
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *matchRepo) ListForProfile(ctx context.Context, profileID string, status *models.MatchStatus, direction *models.MatchDirection) ([]models.Match, error) {
	var filter bson.M
	switch {
	case direction != nil && *direction == models.DirectionSent:
		filter = bson.M{"initiator_profile_id": profileID}
	case direction != nil && *direction == models.DirectionReceived:
		filter = bson.M{"target_profile_id": profileID}
	default:
		filter = bson.M{"$or": bson.A{
			bson.M{"initiator_profile_id": profileID},
			bson.M{"target_profile_id": profileID},
		}}
	}
	if status != nil {
		filter["status"] = *status
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Match
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
