package types

import "time"

// User represents an account in the blog platform.
// It contains identity, profile data, and the list of posts the user authored.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique handle chosen by the user.
	// It is 3-30 characters of letters, digits, and underscores.
	Username string `json:"username" db:"username"`

	// Email is the user's email address. It is unique across users.
	Email string `json:"email" db:"email"`

	// Profile holds optional public profile data.
	Profile Profile `json:"profile" db:"profile"`

	// Posts is the ordered list of IDs of posts authored by this user.
	// It is maintained alongside post creation and deletion.
	Posts []int `json:"posts" db:"posts"`

	// PasswordHash stores the bcrypt hash of the user's password, when one
	// was set at creation. This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Profile holds a user's optional public profile fields.
type Profile struct {
	// Bio is a free-form description, at most 500 characters.
	Bio string `json:"bio,omitempty" db:"bio"`

	// SocialLinks is an ordered list of URLs to the user's other profiles.
	SocialLinks []string `json:"socialLinks,omitempty" db:"social_links"`
}

// UserSummary is the subset of user fields embedded in resolved posts.
type UserSummary struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Username is the user's unique handle.
	Username string `json:"username"`

	// Email is the user's email address.
	Email string `json:"email"`

	// Profile holds the user's public profile data.
	Profile Profile `json:"profile"`
}

// UserRef is the minimal reference to a user, carrying only the handle.
// It is used where a post list is shown on the user's own page.
type UserRef struct {
	// ID is the unique identifier of the user.
	ID int `json:"id"`

	// Username is the user's unique handle.
	Username string `json:"username"`
}

// Summary returns the summary view of the user.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Profile:  u.Profile,
	}
}

// Ref returns the minimal reference view of the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// UserWithPosts is the response shape for a user profile lookup: the user's
// own fields with the posts list resolved into post summaries.
type UserWithPosts struct {
	ID        int           `json:"id"`
	Username  string        `json:"username"`
	Email     string        `json:"email"`
	Profile   Profile       `json:"profile"`
	Posts     []PostSummary `json:"posts"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
