package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a single conversation entry. Messages are embedded in buckets
// and ordered by insertion.
type Message struct {
	SentAt          time.Time `bson:"sent_at" json:"sent_at"`
	SenderProfileID string    `bson:"sender_profile_id" json:"sender_profile_id"`
	SenderName      string    `bson:"sender_name" json:"sender_name"`
	Content         string    `bson:"content" json:"content"`
}

// ConversationBucket is one fixed-capacity partition of a match's message
// log. bucket_number is monotonic per match, starting at 1; only the
// highest-numbered bucket may be partially filled.
type ConversationBucket struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MatchID      string             `bson:"match_id" json:"match_id"`
	BucketNumber int                `bson:"bucket_number" json:"bucket_number"`
	MessageCount int                `bson:"message_count" json:"message_count"`
	Messages     []Message          `bson:"messages" json:"messages"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

type ConversationSummary struct {
	MatchID       string     `json:"match_id"`
	TotalMessages int        `json:"total_messages"`
	TotalBuckets  int        `json:"total_buckets"`
	FirstMessage  *Message   `json:"first_message,omitempty"`
	LastMessage   *Message   `json:"last_message,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
