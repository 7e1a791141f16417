package services

import (
	"context"
	"errors"
	"testing"

	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

func newUserService() (*UserService, *fakeUserRepo, *fakePostRepo) {
	users := newFakeUserRepo()
	posts := newFakePostRepo(users)
	return NewUserService(users, posts), users, posts
}

func TestUserServiceCreate(t *testing.T) {
	service, users, _ := newUserService()

	created, err := service.Create(context.Background(), types.User{
		Username: "alice",
		Email:    "alice@x.com",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned ID")
	}
	if created.Posts == nil || len(created.Posts) != 0 {
		t.Fatalf("expected empty posts list, got %v", created.Posts)
	}
	if len(users.users) != 1 {
		t.Fatalf("expected one stored user, got %d", len(users.users))
	}
}

func TestUserServiceCreateInvalidNothingPersisted(t *testing.T) {
	service, users, _ := newUserService()

	_, err := service.Create(context.Background(), types.User{
		Username: "ab",
		Email:    "alice@x.com",
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(users.users) != 0 {
		t.Fatalf("expected nothing persisted, got %d users", len(users.users))
	}
}

func TestUserServiceCreateUniqueness(t *testing.T) {
	service, _, _ := newUserService()
	ctx := context.Background()

	if _, err := service.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := service.Create(ctx, types.User{Username: "alice", Email: "other@x.com"})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError for duplicate username, got %v", err)
	}
	if !containsViolation(validation, "Username already exists") {
		t.Fatalf("unexpected violations: %v", validation.Violations)
	}

	_, err = service.Create(ctx, types.User{Username: "bob", Email: "alice@x.com"})
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError for duplicate email, got %v", err)
	}
	if !containsViolation(validation, "Email already exists") {
		t.Fatalf("unexpected violations: %v", validation.Violations)
	}
}

func TestUserServiceGetByUsernameResolvesPosts(t *testing.T) {
	service, users, posts := newUserService()
	ctx := context.Background()

	alice, err := service.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	postService := NewPostService(posts, users, nil)
	first, err := postService.Create(ctx, "First", "one", alice.ID)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	second, err := postService.Create(ctx, "Second", "two", alice.ID)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	profile, err := service.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if len(profile.Posts) != 2 {
		t.Fatalf("expected 2 resolved posts, got %d", len(profile.Posts))
	}
	if profile.Posts[0].ID != first.ID || profile.Posts[1].ID != second.ID {
		t.Fatalf("posts out of order: %v", profile.Posts)
	}
	if profile.Posts[0].Title != "First" {
		t.Fatalf("unexpected title %q", profile.Posts[0].Title)
	}
	if profile.Posts[0].Author.Username != "alice" {
		t.Fatalf("expected author ref to carry username, got %+v", profile.Posts[0].Author)
	}
}

func TestUserServiceGetByUsernameMissing(t *testing.T) {
	service, _, _ := newUserService()

	_, err := service.GetByUsername(context.Background(), "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserServiceGetByUsernameSkipsStaleReferences(t *testing.T) {
	service, users, posts := newUserService()
	ctx := context.Background()

	alice, err := service.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	postService := NewPostService(posts, users, nil)
	post, err := postService.Create(ctx, "T", "C", alice.ID)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	// Simulate an out-of-band post removal that leaves the reference behind.
	delete(posts.posts, post.ID)

	profile, err := service.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if len(profile.Posts) != 0 {
		t.Fatalf("expected stale reference to be skipped, got %v", profile.Posts)
	}
}

func TestUserServiceList(t *testing.T) {
	service, _, _ := newUserService()
	ctx := context.Background()

	for _, username := range []string{"alice", "bob", "carol"} {
		if _, err := service.Create(ctx, types.User{Username: username, Email: username + "@x.com"}); err != nil {
			t.Fatalf("create %s: %v", username, err)
		}
	}

	users, err := service.List(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
}
