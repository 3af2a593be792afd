package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type LookingFor string

const (
	LookingForFriendship LookingFor = "friendship"
	LookingForCasual     LookingFor = "casual"
	LookingForSerious    LookingFor = "serious"
)

func (lf LookingFor) Valid() bool {
	switch lf {
	case LookingForFriendship, LookingForCasual, LookingForSerious:
		return true
	}
	return false
}

// GeoPoint is a GeoJSON point with the city label kept alongside the
// coordinates, stored as [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"-"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	CityName    string    `bson:"city_name" json:"city_name"`
}

func NewGeoPoint(cityName string, lon, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}, CityName: cityName}
}

func (p GeoPoint) Lon() float64 {
	if len(p.Coordinates) == 2 {
		return p.Coordinates[0]
	}
	return 0
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) == 2 {
		return p.Coordinates[1]
	}
	return 0
}

// Profile is a user's dateable persona, distinct from the identity mirror.
// first_name, date_of_birth and gender are fixed at creation; everything
// else may change through the update path.
type Profile struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName   string             `bson:"first_name" json:"first_name"`
	DateOfBirth time.Time          `bson:"date_of_birth" json:"date_of_birth"`
	Gender      Gender             `bson:"gender" json:"gender"`
	Location    GeoPoint           `bson:"location" json:"location"`

	LookingFor       []LookingFor `bson:"looking_for" json:"looking_for"`
	LookingForGender []Gender     `bson:"looking_for_gender" json:"looking_for_gender"`

	Subject     string   `bson:"subject" json:"subject"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Goals       string   `bson:"goals,omitempty" json:"goals,omitempty"`
	Photos      []string `bson:"photos" json:"photos"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Age derives the current age from date_of_birth; it is never stored.
func (p *Profile) Age() int {
	return AgeAt(p.DateOfBirth, time.Now().UTC())
}

func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// ProfileUpdate carries the mutable field set. Nil means "leave unchanged".
type ProfileUpdate struct {
	Location         *GeoPoint     `json:"location,omitempty"`
	LookingFor       *[]LookingFor `json:"looking_for,omitempty"`
	LookingForGender *[]Gender     `json:"looking_for_gender,omitempty"`
	Subject          *string       `json:"subject,omitempty"`
	Description      *string       `json:"description,omitempty"`
	Goals            *string       `json:"goals,omitempty"`
	Photos           *[]string     `json:"photos,omitempty"`
}
