package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Tier                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Draft is the persisted field map for one user and form.
type Draft struct {
	UserID    string
	FormKey   string
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CheckIn struct {
	ID             string
	UserID         string
	Emotions       []string
	AlignmentScore int
	Need           string
	Type           string
	RecordedAt     time.Time
}

type ClarityResult struct {
	ID              string
	UserID          string
	Answers         []int
	Choices         []string
	DimensionScores map[string]int
	Total           int
	IdentityType    string
	RecordedAt      time.Time
}
