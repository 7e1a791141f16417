package services

import (
	"context"
	"errors"

	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]types.User, error)
	List(ctx context.Context) ([]types.User, error)
}

// PostReader is the subset of post persistence the user service needs to
// resolve a profile's post list.
type PostReader interface {
	GetByIDs(ctx context.Context, ids []int) (map[int]types.Post, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo  UserRepository
	posts PostReader
}

func NewUserService(repo UserRepository, posts PostReader) *UserService {
	return &UserService{repo: repo, posts: posts}
}

// Create validates and stores a new user. All violated constraints,
// including uniqueness conflicts, come back as a *ValidationError; nothing
// is persisted on failure.
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	if err := validateUser(user); err != nil {
		return types.User{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			return types.User{}, conflictToValidation(conflict)
		}
		return types.User{}, err
	}
	return created, nil
}

// List returns all users, unfiltered and unpaginated.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// GetByID returns the user with the given ID.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAccountByUsername returns the raw user record for the handle, without
// resolving posts. Used by authentication, where the password hash matters
// and the posts list does not.
func (s *UserService) GetAccountByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// GetByUsername returns the user matching the handle, with the posts list
// resolved into post summaries in stored order.
func (s *UserService) GetByUsername(ctx context.Context, username string) (types.UserWithPosts, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.UserWithPosts{}, err
	}

	postsByID, err := s.posts.GetByIDs(ctx, user.Posts)
	if err != nil {
		return types.UserWithPosts{}, err
	}

	summaries := make([]types.PostSummary, 0, len(user.Posts))
	for _, id := range user.Posts {
		post, ok := postsByID[id]
		if !ok {
			// Stale reference; the post was removed out of band.
			continue
		}
		summaries = append(summaries, types.PostSummary{
			ID:        post.ID,
			Title:     post.Title,
			Content:   post.Content,
			Author:    user.Ref(),
			CreatedAt: post.CreatedAt,
			UpdatedAt: post.UpdatedAt,
		})
	}

	return types.UserWithPosts{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Profile:   user.Profile,
		Posts:     summaries,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}, nil
}
