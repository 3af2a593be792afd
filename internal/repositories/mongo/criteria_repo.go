package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/educlove/educlove-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CriteriaRepository interface {
	Upsert(ctx context.Context, c *models.SearchCriteria) error
	// GetByUserID returns (nil, nil) when the user has no saved criteria;
	// absent criteria means "no constraint", not an error.
	GetByUserID(ctx context.Context, userID string) (*models.SearchCriteria, error)
	Delete(ctx context.Context, userID string) (bool, error)
}

type criteriaRepo struct {
	col *mongo.Collection
}

func NewCriteriaRepo(db *mongo.Database) CriteriaRepository {
	return &criteriaRepo{col: db.Collection("search_criteria")}
}

func (r *criteriaRepo) Upsert(ctx context.Context, c *models.SearchCriteria) error {
	now := time.Now().UTC()
	for i := range c.Locations {
		if c.Locations[i].Type == "" {
			c.Locations[i].Type = "Point"
		}
	}

	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": c.UserID},
		bson.M{
			"$set": bson.M{
				"locations":  c.Locations,
				"radii":      c.Radii,
				"age_min":    c.AgeMin,
				"age_max":    c.AgeMax,
				"subjects":   c.Subjects,
				"updated_at": now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *criteriaRepo) GetByUserID(ctx context.Context, userID string) (*models.SearchCriteria, error) {
	var c models.SearchCriteria
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *criteriaRepo) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
