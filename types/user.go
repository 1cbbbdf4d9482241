package types

import "time"

// User represents an account in the system.
// It contains identity, onboarding profile, and audit metadata.
type User struct {
	// ID is the unique identifier of the user, assigned at creation.
	ID string `json:"id" db:"id"`

	// Email is the user's email address. Unique across all users.
	Email string `json:"email" db:"email"`

	// FullName is the user's display or full name.
	FullName string `json:"fullName" db:"full_name"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ProfilePic is the URL of the user's avatar, defaulted at signup.
	ProfilePic string `json:"profilePic" db:"profile_pic"`

	// Bio is a short self-description collected during onboarding.
	Bio string `json:"bio" db:"bio"`

	// NativeLanguage is the language the user speaks natively.
	NativeLanguage string `json:"nativeLanguage" db:"native_language"`

	// LearningLanguage is the language the user wants to practice.
	LearningLanguage string `json:"learningLanguage" db:"learning_language"`

	// Location is the user's self-reported location.
	Location string `json:"location" db:"location"`

	// IsOnboarded reports whether the user completed the onboarding step.
	// It transitions from false to true exactly once and never resets.
	IsOnboarded bool `json:"isOnboarded" db:"is_onboarded"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Profile holds the onboarding fields applied to a user. Only these
// fields are ever copied from an onboarding request into the record.
type Profile struct {
	FullName         string
	Bio              string
	NativeLanguage   string
	LearningLanguage string
	Location         string
}
