package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchCriteria holds a user's saved discovery filters. Gender and
// looking-for matching are derived from the user's own profile preferences,
// not stored here.
type SearchCriteria struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string             `bson:"user_id" json:"user_id"`

	// Locations and Radii are parallel: Radii[i] is the search radius in
	// kilometers around Locations[i]. A profile qualifies when it falls
	// within any one of the circles.
	Locations []GeoPoint `bson:"locations" json:"locations"`
	Radii     []int      `bson:"radii" json:"radii"`

	AgeMin   *int     `bson:"age_min,omitempty" json:"age_min,omitempty"`
	AgeMax   *int     `bson:"age_max,omitempty" json:"age_max,omitempty"`
	Subjects []string `bson:"subjects,omitempty" json:"subjects,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
