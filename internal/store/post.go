package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/openblog/apiserver/types"
)

// PostRepository handles persistence for posts. Post creation and deletion
// also maintain the author's post_ids list; both writes run in one
// transaction so a reference is never left dangling by a partial failure.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts the post and appends its ID to the author's post list.
func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Comments == nil {
		post.Comments = []types.Comment{}
	}

	commentsJSON, err := json.Marshal(post.Comments)
	if err != nil {
		return types.Post{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Post{}, err
	}
	defer tx.Rollback()

	const insertQuery = `
		INSERT INTO posts (title, content, author_id, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		post.Title,
		post.Content,
		post.AuthorID,
		commentsJSON,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, err
	}

	const appendQuery = `
		UPDATE users
		SET post_ids = post_ids || to_jsonb($2::int),
			updated_at = $3
		WHERE id = $1`
	result, err := tx.ExecContext(ctx, appendQuery, post.AuthorID, post.ID, now)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Delete removes the post and pulls its ID from the author's post list.
// The pull tolerates the reference already being absent.
func (r *PostRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const deleteQuery = `
		DELETE FROM posts
		WHERE id = $1
		RETURNING author_id`
	var authorID int
	if err := tx.QueryRowContext(ctx, deleteQuery, id).Scan(&authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	const pullQuery = `
		UPDATE users
		SET post_ids = COALESCE(
				(SELECT jsonb_agg(elem)
				 FROM jsonb_array_elements(post_ids) elem
				 WHERE elem <> to_jsonb($2::int)),
				'[]'::jsonb),
			updated_at = $3
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, pullQuery, authorID, id, time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostRepository) Get(ctx context.Context, id int) (types.Post, error) {
	const query = `
		SELECT id, title, content, author_id, comments, created_at, updated_at
		FROM posts
		WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]types.Post, error) {
	const query = `
		SELECT id, title, content, author_id, comments, created_at, updated_at
		FROM posts
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []types.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetByIDs returns the posts matching the given IDs, keyed by ID. Missing
// IDs are simply absent from the map.
func (r *PostRepository) GetByIDs(ctx context.Context, ids []int) (map[int]types.Post, error) {
	posts := make(map[int]types.Post, len(ids))
	if len(ids) == 0 {
		return posts, nil
	}

	const query = `
		SELECT id, title, content, author_id, comments, created_at, updated_at
		FROM posts
		WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts[post.ID] = post
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// Update applies a partial field replacement: nil fields keep their stored
// value.
func (r *PostRepository) Update(ctx context.Context, id int, update types.PostUpdate) (types.Post, error) {
	const query = `
		UPDATE posts
		SET title = COALESCE($2, title),
			content = COALESCE($3, content),
			updated_at = $4
		WHERE id = $1
		RETURNING id, title, content, author_id, comments, created_at, updated_at`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, update.Title, update.Content, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

// AddComment appends the comment to the post's embedded comment list.
func (r *PostRepository) AddComment(ctx context.Context, id int, comment types.Comment) (types.Post, error) {
	comment.CreatedAt = time.Now()

	// Marshal as a one-element array so the jsonb concatenation appends
	// exactly one element regardless of the comment's shape.
	commentJSON, err := json.Marshal([]types.Comment{comment})
	if err != nil {
		return types.Post{}, err
	}

	const query = `
		UPDATE posts
		SET comments = comments || $2::jsonb,
			updated_at = $3
		WHERE id = $1
		RETURNING id, title, content, author_id, comments, created_at, updated_at`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, commentJSON, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	var commentsJSON []byte
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&commentsJSON,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return types.Post{}, err
	}
	_ = json.Unmarshal(commentsJSON, &post.Comments)
	if post.Comments == nil {
		post.Comments = []types.Comment{}
	}
	return post, nil
}
