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

// Postgres error code for unique_violation.
const uniqueViolationCode = "23505"

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Posts == nil {
		user.Posts = []int{}
	}

	linksJSON, err := json.Marshal(user.Profile.SocialLinks)
	if err != nil {
		return types.User{}, err
	}
	postsJSON, err := json.Marshal(user.Posts)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (username, email, bio, social_links, post_ids, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Profile.Bio,
		linksJSON,
		postsJSON,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return types.User{}, &ConflictError{Constraint: pqErr.Constraint}
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, username, email, bio, social_links, post_ids, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, email, bio, social_links, post_ids, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT id, username, email, bio, social_links, post_ids, password_hash, created_at, updated_at
		FROM users
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByIDs returns the users matching the given IDs, keyed by ID. Missing
// IDs are simply absent from the map.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int) (map[int]types.User, error) {
	users := make(map[int]types.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	const query = `
		SELECT id, username, email, bio, social_links, post_ids, password_hash, created_at, updated_at
		FROM users
		WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var linksJSON, postsJSON []byte
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Profile.Bio,
		&linksJSON,
		&postsJSON,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return types.User{}, err
	}
	_ = json.Unmarshal(linksJSON, &user.Profile.SocialLinks)
	_ = json.Unmarshal(postsJSON, &user.Posts)
	if user.Posts == nil {
		user.Posts = []int{}
	}
	return user, nil
}
