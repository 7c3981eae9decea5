package entry

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("entry not found")
	ErrValidation   = errors.New("invalid entry")
	ErrStore        = errors.New("entry store failure")
)

// Template selects how an entry's Content is interpreted.
type Template string

const (
	TemplateFree       Template = "free"
	TemplateFiveMinute Template = "five-minute"
)

// ParseTemplate maps user input onto a Template. An empty string is the free template.
func ParseTemplate(s string) (Template, error) {
	switch Template(s) {
	case "", TemplateFree:
		return TemplateFree, nil
	case TemplateFiveMinute:
		return TemplateFiveMinute, nil
	}
	return "", fmt.Errorf("%w: unknown template %q", ErrValidation, s)
}

const (
	MinMood     = 1
	MaxMood     = 5
	DefaultMood = 3
)

// ValidateMood rejects moods outside [MinMood, MaxMood].
func ValidateMood(m int) error {
	if m < MinMood || m > MaxMood {
		return fmt.Errorf("%w: mood must be between %d and %d, got %d", ErrValidation, MinMood, MaxMood, m)
	}
	return nil
}

// Entry is one journal record. Every entry belongs to exactly one owner and is
// only ever read or written with that owner's id as a predicate.
type Entry struct {
	ID        string    `json:"id" bson:"id" db:"id"`
	OwnerID   string    `json:"ownerId" bson:"ownerId" db:"user_id"`
	Title     *string   `json:"title" bson:"title,omitempty" db:"title"`
	Content   string    `json:"content" bson:"content" db:"content"`
	Template  Template  `json:"template" bson:"template" db:"template"`
	Mood      int       `json:"mood" bson:"mood" db:"mood"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// Changes is the full replacement applied by an update. A nil Template keeps
// the stored one.
type Changes struct {
	Title    *string
	Content  string
	Mood     int
	Template *Template
}

// Apply writes c onto e and stamps UpdatedAt.
func (c Changes) Apply(e *Entry, now time.Time) {
	e.Title = c.Title
	e.Content = c.Content
	e.Mood = c.Mood
	if c.Template != nil {
		e.Template = *c.Template
	}
	e.UpdatedAt = now
}

// Body returns the decoded payload for the entry's template.
func (e *Entry) Body() Body {
	return Decode(e.Template, e.Content)
}

// Preview is the short text shown in lists.
func (e *Entry) Preview() string {
	return e.Body().Preview()
}
