package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchAccepted MatchStatus = "accepted"
	MatchRejected MatchStatus = "rejected"
	MatchBlocked  MatchStatus = "blocked"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchAccepted, MatchRejected, MatchBlocked:
		return true
	}
	return false
}

// Match is a directed like edge between two profiles. Mutuality is derived
// from the opposite-direction edge, never stored.
type Match struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InitiatorProfileID string             `bson:"initiator_profile_id" json:"initiator_profile_id"`
	TargetProfileID    string             `bson:"target_profile_id" json:"target_profile_id"`
	Status             MatchStatus        `bson:"status" json:"status"`
	Message            string             `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// Action tags returned by the like reconciliation.
type LikeAction string

const (
	ActionLikeSent     LikeAction = "like_sent"
	ActionMutualMatch  LikeAction = "mutual_match"
	ActionAlreadyLiked LikeAction = "already_liked"
)

// LikeResult reports what the reconciler decided for a like attempt.
type LikeResult struct {
	Action  LikeAction  `json:"action"`
	MatchID string      `json:"match_id"`
	Status  MatchStatus `json:"status"`

	// On mutual_match: the initial message stored on the reverse edge,
	// used to seed the conversation in chronological order.
	InitialMessage string `json:"initial_message,omitempty"`
}

// MatchDirection distinguishes edges the profile sent from edges it received.
type MatchDirection string

const (
	DirectionSent     MatchDirection = "sent"
	DirectionReceived MatchDirection = "received"
)
