package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openblog/apiserver/internal/handlers"
	"github.com/openblog/apiserver/internal/services"
	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

// memUsers and memPosts are in-memory repositories backing the handler
// tests. They mirror the real store's semantics, including the post-list
// maintenance done alongside post creation and deletion.
type memUsers struct {
	users  map[int]types.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int]types.User{}, nextID: 1}
}

func (m *memUsers) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return types.User{}, &store.ConflictError{Constraint: "users_username_key"}
		}
		if existing.Email == user.Email {
			return types.User{}, &store.ConflictError{Constraint: "users_email_key"}
		}
	}
	user.ID = m.nextID
	m.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Posts == nil {
		user.Posts = []int{}
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUsers) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByIDs(ctx context.Context, ids []int) (map[int]types.User, error) {
	result := map[int]types.User{}
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

func (m *memUsers) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	for id := 1; id < m.nextID; id++ {
		if user, ok := m.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

type memPosts struct {
	posts  map[int]types.Post
	users  *memUsers
	nextID int
}

func newMemPosts(users *memUsers) *memPosts {
	return &memPosts{posts: map[int]types.Post{}, users: users, nextID: 1}
}

func (m *memPosts) Create(ctx context.Context, post types.Post) (types.Post, error) {
	author, ok := m.users.users[post.AuthorID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	post.ID = m.nextID
	m.nextID++
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Comments == nil {
		post.Comments = []types.Comment{}
	}
	m.posts[post.ID] = post

	author.Posts = append(author.Posts, post.ID)
	m.users.users[author.ID] = author
	return post, nil
}

func (m *memPosts) Get(ctx context.Context, id int) (types.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (m *memPosts) GetByIDs(ctx context.Context, ids []int) (map[int]types.Post, error) {
	result := map[int]types.Post{}
	for _, id := range ids {
		if post, ok := m.posts[id]; ok {
			result[id] = post
		}
	}
	return result, nil
}

func (m *memPosts) List(ctx context.Context) ([]types.Post, error) {
	posts := []types.Post{}
	for id := 1; id < m.nextID; id++ {
		if post, ok := m.posts[id]; ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (m *memPosts) Update(ctx context.Context, id int, update types.PostUpdate) (types.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	if update.Title != nil {
		post.Title = *update.Title
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	post.UpdatedAt = time.Now()
	m.posts[id] = post
	return post, nil
}

func (m *memPosts) Delete(ctx context.Context, id int) error {
	post, ok := m.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)

	if author, ok := m.users.users[post.AuthorID]; ok {
		kept := []int{}
		for _, postID := range author.Posts {
			if postID != id {
				kept = append(kept, postID)
			}
		}
		author.Posts = kept
		m.users.users[author.ID] = author
	}
	return nil
}

func (m *memPosts) AddComment(ctx context.Context, id int, comment types.Comment) (types.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	comment.CreatedAt = time.Now()
	post.Comments = append(post.Comments, comment)
	post.UpdatedAt = comment.CreatedAt
	m.posts[id] = post
	return post, nil
}

const testJWTSecret = "test-secret"

func newTestRouter() (*chi.Mux, *memUsers, *memPosts) {
	users := newMemUsers()
	posts := newMemPosts(users)

	userService := services.NewUserService(users, posts)
	postService := services.NewPostService(posts, users, nil)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService)
	})
	router.Route("/api/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService)
	})
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, testJWTSecret)
	})
	return router, users, posts
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, value any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(value); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
