package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrStoreRead  = errors.New("store read failed")
	ErrStoreWrite = errors.New("store write failed")
)

// RecentLoginEventsLimit caps the login event listing.
const RecentLoginEventsLimit = 50

// Profile is the normalized view of an identity provider record. ID is always
// set; nil pointers mean the provider did not supply the field.
type Profile struct {
	ID          string
	Email       *string
	DisplayName *string
	AvatarURL   *string
	Provider    *string
}

// Record is one row of the users table.
type Record struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email"`
	Name      *string   `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	Provider  *string   `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginEvent is one append-only row of the login_events table.
type LoginEvent struct {
	ID         string    `json:"id"`
	AuthUserID string    `json:"auth_user_id"`
	Email      *string   `json:"email"`
	Provider   *string   `json:"provider"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Update is a partial update of a user. Only fields with their Set flag true
// are written; a set field with a nil value clears the column.
type Update struct {
	Name    *string
	NameSet bool
}

func (u Update) Empty() bool {
	return !u.NameSet
}
