package services

import (
	"context"
	"time"

	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository. It mirrors the real store's
// behavior: unique username/email enforcement and post_ids maintenance done
// by the post repository.
type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return types.User{}, &store.ConflictError{Constraint: "users_username_key"}
		}
		if existing.Email == user.Email {
			return types.User{}, &store.ConflictError{Constraint: "users_email_key"}
		}
	}
	user.ID = f.nextID
	f.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Posts == nil {
		user.Posts = []int{}
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []int) (map[int]types.User, error) {
	result := map[int]types.User{}
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	for id := 1; id < f.nextID; id++ {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

// fakePostRepo is an in-memory PostRepository. Like the real store, post
// creation and deletion also maintain the author's post list.
type fakePostRepo struct {
	posts  map[int]types.Post
	users  *fakeUserRepo
	nextID int
}

func newFakePostRepo(users *fakeUserRepo) *fakePostRepo {
	return &fakePostRepo{posts: map[int]types.Post{}, users: users, nextID: 1}
}

func (f *fakePostRepo) Create(ctx context.Context, post types.Post) (types.Post, error) {
	author, ok := f.users.users[post.AuthorID]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}

	post.ID = f.nextID
	f.nextID++
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Comments == nil {
		post.Comments = []types.Comment{}
	}
	f.posts[post.ID] = post

	author.Posts = append(author.Posts, post.ID)
	f.users.users[author.ID] = author
	return post, nil
}

func (f *fakePostRepo) Get(ctx context.Context, id int) (types.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (f *fakePostRepo) GetByIDs(ctx context.Context, ids []int) (map[int]types.Post, error) {
	result := map[int]types.Post{}
	for _, id := range ids {
		if post, ok := f.posts[id]; ok {
			result[id] = post
		}
	}
	return result, nil
}

func (f *fakePostRepo) List(ctx context.Context) ([]types.Post, error) {
	posts := []types.Post{}
	for id := 1; id < f.nextID; id++ {
		if post, ok := f.posts[id]; ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (f *fakePostRepo) Update(ctx context.Context, id int, update types.PostUpdate) (types.Post, error) {
	post, ok := f.posts[id]
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
	f.posts[id] = post
	return post, nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id int) error {
	post, ok := f.posts[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.posts, id)

	if author, ok := f.users.users[post.AuthorID]; ok {
		kept := []int{}
		for _, postID := range author.Posts {
			if postID != id {
				kept = append(kept, postID)
			}
		}
		author.Posts = kept
		f.users.users[author.ID] = author
	}
	return nil
}

func (f *fakePostRepo) AddComment(ctx context.Context, id int, comment types.Comment) (types.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	comment.CreatedAt = time.Now()
	post.Comments = append(post.Comments, comment)
	post.UpdatedAt = comment.CreatedAt
	f.posts[id] = post
	return post, nil
}
