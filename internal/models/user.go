package models

import "time"

// User mirrors the account held by the external identity provider. It is
// upserted on every authenticated request, keyed by sub.
type User struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Sub      string `gorm:"column:sub;type:text;uniqueIndex" json:"sub"`
	Email    string `gorm:"column:email;type:text" json:"email"`
	Name     string `gorm:"column:name;type:text" json:"name"`
	Picture  string `gorm:"column:picture;type:text" json:"picture"`
	Provider string `gorm:"column:provider;type:text" json:"provider"`

	// Weak back-reference to the Mongo profile document.
	ProfileID *string `gorm:"column:profile_id;type:text" json:"profile_id,omitempty"`

	EmailVerified    bool `gorm:"column:email_verified" json:"email_verified"`
	ProfileCompleted bool `gorm:"column:profile_completed" json:"profile_completed"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	LastLogin time.Time `gorm:"column:last_login;type:timestamptz" json:"last_login"`
}

func (User) TableName() string { return "users" }

// Identity is the verified claim set produced by the auth middleware.
type Identity struct {
	Sub           string
	Email         string
	Name          string
	Picture       string
	Provider      string
	EmailVerified bool
}
