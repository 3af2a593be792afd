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

type ProfileRepository interface {
	Insert(ctx context.Context, p *models.Profile) (string, error)
	GetByID(ctx context.Context, profileID string) (*models.Profile, error)
	Update(ctx context.Context, profileID string, set bson.M) (bool, error)
	PushPhoto(ctx context.Context, profileID string, url string) error
	Exists(ctx context.Context, profileID string) (bool, error)
	Delete(ctx context.Context, profileID string) (bool, error)

	// SampleOne picks one document uniformly at random from the filtered
	// set. Returns (nil, nil) when the set is empty.
	SampleOne(ctx context.Context, filter bson.M) (*models.Profile, error)
}

type profileRepo struct {
	col *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) ProfileRepository {
	return &profileRepo{col: db.Collection("profiles")}
}

func (r *profileRepo) Insert(ctx context.Context, p *models.Profile) (string, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Location.Type == "" {
		p.Location.Type = "Point"
	}
	if p.Photos == nil {
		p.Photos = []string{}
	}

	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return "", err
	}
	id := res.InsertedID.(primitive.ObjectID)
	p.ID = id
	return id.Hex(), nil
}

func (r *profileRepo) GetByID(ctx context.Context, profileID string) (*models.Profile, error) {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return nil, utils.ErrNotFound
	}

	var p models.Profile
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Update(ctx context.Context, profileID string, set bson.M) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return false, utils.ErrNotFound
	}

	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *profileRepo) PushPhoto(ctx context.Context, profileID string, url string) error {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return utils.ErrNotFound
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"photos": url},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *profileRepo) Exists(ctx context.Context, profileID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return false, nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *profileRepo) Delete(ctx context.Context, profileID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(profileID)
	if err != nil {
		return false, nil
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *profileRepo) SampleOne(ctx context.Context, filter bson.M) (*models.Profile, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sample", Value: bson.M{"size": 1}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}
