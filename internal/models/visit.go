package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileVisit records that a user viewed a profile. One live record per
// (user_id, visited_profile_id) pair; a repeat view refreshes visited_at,
// which also restarts the TTL clock.
type ProfileVisit struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"user_id" json:"user_id"`
	VisitedProfileID string             `bson:"visited_profile_id" json:"visited_profile_id"`
	VisitedAt        time.Time          `bson:"visited_at" json:"visited_at"`
}
