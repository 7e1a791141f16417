package types

import "time"

// Post represents a blog post as persisted: author and comment authors are
// stored as user IDs and resolved on read.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the post headline.
	Title string `json:"title" db:"title"`

	// Content is the post body.
	Content string `json:"content" db:"content"`

	// AuthorID references the user who wrote the post. The referenced user
	// must exist at creation time.
	AuthorID int `json:"author" db:"author_id"`

	// Comments is the ordered list of comments embedded in the post.
	// Comments have no identity of their own.
	Comments []Comment `json:"comments" db:"comments"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Comment is a single comment embedded in a post.
type Comment struct {
	// Content is the comment body.
	Content string `json:"content"`

	// AuthorID references the user who wrote the comment. The referenced
	// user must exist when the comment is added.
	AuthorID int `json:"author"`

	// CreatedAt is the server-assigned timestamp of the comment.
	CreatedAt time.Time `json:"createdAt"`
}

// ResolvedPost is a post with its author and comment authors expanded into
// user summaries. This is the shape returned by the post read endpoints.
type ResolvedPost struct {
	ID        int               `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Author    UserSummary       `json:"author"`
	Comments  []ResolvedComment `json:"comments"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ResolvedComment is a comment with its author expanded into a user summary.
type ResolvedComment struct {
	Content   string      `json:"content"`
	Author    UserSummary `json:"author"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PostSummary is a post as embedded in a user profile response: full post
// fields with the author reduced to a minimal reference.
type PostSummary struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    UserRef   `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostUpdate describes a partial update to a post. Nil fields are left
// unchanged.
type PostUpdate struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}
