package services

import (
	"context"
	"errors"

	"github.com/openblog/apiserver/internal/events"
	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

// ErrAuthorNotFound is returned when a post or comment names an author that
// does not resolve to an existing user.
var ErrAuthorNotFound = errors.New("author not found")

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Get(ctx context.Context, id int) (types.Post, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]types.Post, error)
	List(ctx context.Context) ([]types.Post, error)
	Update(ctx context.Context, id int, update types.PostUpdate) (types.Post, error)
	Delete(ctx context.Context, id int) error
	AddComment(ctx context.Context, id int, comment types.Comment) (types.Post, error)
}

// UserReader is the subset of user persistence the post service needs for
// author checks and reference resolution.
type UserReader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]types.User, error)
}

// PostService encapsulates post use-cases. Read operations resolve author
// references into user summaries with explicit secondary lookups.
type PostService struct {
	repo      PostRepository
	users     UserReader
	publisher *events.Publisher
}

func NewPostService(repo PostRepository, users UserReader, publisher *events.Publisher) *PostService {
	return &PostService{repo: repo, users: users, publisher: publisher}
}

// Create verifies the author exists, then persists the post and appends its
// ID to the author's post list in one transaction.
func (s *PostService) Create(ctx context.Context, title, content string, authorID int) (types.Post, error) {
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, ErrAuthorNotFound
		}
		return types.Post{}, err
	}

	post, err := s.repo.Create(ctx, types.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	})
	if err != nil {
		// The author row vanished between the check and the insert.
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, ErrAuthorNotFound
		}
		return types.Post{}, err
	}

	s.publisher.PostCreated(ctx, events.PostEvent{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Title:    post.Title,
	})
	return post, nil
}

// Delete removes the post and pulls its ID from the author's post list.
func (s *PostService) Delete(ctx context.Context, id int) error {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.PostDeleted(ctx, events.PostEvent{
		PostID:   post.ID,
		AuthorID: post.AuthorID,
	})
	return nil
}

// List returns all posts with authors and comment authors resolved.
func (s *PostService) List(ctx context.Context) ([]types.ResolvedPost, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, posts)
}

// Get returns a single post with authors resolved.
func (s *PostService) Get(ctx context.Context, id int) (types.ResolvedPost, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.ResolvedPost{}, err
	}
	return s.resolveOne(ctx, post)
}

// Update applies a partial field replacement and returns the resolved post.
func (s *PostService) Update(ctx context.Context, id int, update types.PostUpdate) (types.ResolvedPost, error) {
	post, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return types.ResolvedPost{}, err
	}
	return s.resolveOne(ctx, post)
}

// AddComment verifies the comment author exists, appends a comment with a
// server-assigned timestamp, and returns the resolved post.
func (s *PostService) AddComment(ctx context.Context, postID int, content string, authorID int) (types.ResolvedPost, error) {
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ResolvedPost{}, ErrAuthorNotFound
		}
		return types.ResolvedPost{}, err
	}

	post, err := s.repo.AddComment(ctx, postID, types.Comment{
		Content:  content,
		AuthorID: authorID,
	})
	if err != nil {
		return types.ResolvedPost{}, err
	}

	s.publisher.CommentAdded(ctx, events.PostEvent{
		PostID:   post.ID,
		AuthorID: authorID,
	})
	return s.resolveOne(ctx, post)
}

func (s *PostService) resolveOne(ctx context.Context, post types.Post) (types.ResolvedPost, error) {
	resolved, err := s.resolve(ctx, []types.Post{post})
	if err != nil {
		return types.ResolvedPost{}, err
	}
	return resolved[0], nil
}

// resolve expands author references into user summaries with a single batch
// lookup across all posts and their comments. A reference whose user was
// removed out of band resolves to a zero-value summary rather than failing
// the read.
func (s *PostService) resolve(ctx context.Context, posts []types.Post) ([]types.ResolvedPost, error) {
	ids := make([]int, 0, len(posts))
	seen := make(map[int]bool)
	collect := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, post := range posts {
		collect(post.AuthorID)
		for _, comment := range post.Comments {
			collect(comment.AuthorID)
		}
	}

	usersByID, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	summary := func(id int) types.UserSummary {
		if user, ok := usersByID[id]; ok {
			return user.Summary()
		}
		return types.UserSummary{ID: id}
	}

	resolved := make([]types.ResolvedPost, 0, len(posts))
	for _, post := range posts {
		comments := make([]types.ResolvedComment, 0, len(post.Comments))
		for _, comment := range post.Comments {
			comments = append(comments, types.ResolvedComment{
				Content:   comment.Content,
				Author:    summary(comment.AuthorID),
				CreatedAt: comment.CreatedAt,
			})
		}
		resolved = append(resolved, types.ResolvedPost{
			ID:        post.ID,
			Title:     post.Title,
			Content:   post.Content,
			Author:    summary(post.AuthorID),
			Comments:  comments,
			CreatedAt: post.CreatedAt,
			UpdatedAt: post.UpdatedAt,
		})
	}
	return resolved, nil
}
