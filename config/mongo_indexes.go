package config

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileVisitTTL is how long a visit record lives before the storage
// engine expires it. Repeat views refresh visited_at, restarting the clock.
const ProfileVisitTTL = 30 * 24 * time.Hour

// EnsureMongoIndexes creates every index the repositories rely on. Safe to
// call on every startup; CreateMany is a no-op for indexes that exist.
func EnsureMongoIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	profiles := db.Collection("profiles")
	_, err := profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("geo_location"),
		},
		{
			Keys:    bson.D{{Key: "gender", Value: 1}, {Key: "date_of_birth", Value: 1}},
			Options: options.Index().SetName("by_gender_dob"),
		},
	})
	if err != nil {
		return err
	}

	visits := db.Collection("profile_visits")
	_, err = visits.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// TTL: the engine deletes visits whose timestamp is older than the
		// retention window; the application never runs a sweep.
		{
			Keys: bson.D{{Key: "visited_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_visited_at").
				SetExpireAfterSeconds(int32(ProfileVisitTTL / time.Second)),
		},
		// One live record per (user, profile) pair; also backs the upsert.
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "visited_profile_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_user_profile").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "visited_at", Value: -1}},
			Options: options.Index().SetName("by_user_visited"),
		},
	})
	if err != nil {
		return err
	}

	matches := db.Collection("matches")
	_, err = matches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// A profile may like the same target only once.
		{
			Keys: bson.D{{Key: "initiator_profile_id", Value: 1}, {Key: "target_profile_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_directed_pair").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "initiator_profile_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("by_initiator_updated"),
		},
		{
			Keys:    bson.D{{Key: "target_profile_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("by_target_updated"),
		},
	})
	if err != nil {
		return err
	}

	conversations := db.Collection("conversations")
	_, err = conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// Bucket numbers are assigned optimistically; the unique index is
		// the backstop against two senders creating the same bucket.
		{
			Keys: bson.D{{Key: "match_id", Value: 1}, {Key: "bucket_number", Value: 1}},
			Options: options.Index().
				SetName("uniq_match_bucket").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_created"),
		},
	})
	if err != nil {
		return err
	}

	criteria := db.Collection("search_criteria")
	_, err = criteria.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_user_id").
				SetUnique(true),
		},
	})
	return err
}
