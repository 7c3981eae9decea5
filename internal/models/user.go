package models

import "time"

// User represents a journal owner as known from identity-provider claims. The
// only application data kept here is the default entry template.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Sub       string    `bson:"sub" json:"sub"` // OIDC subject, the owner id of their entries
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Template  string    `bson:"template,omitempty" json:"template,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
