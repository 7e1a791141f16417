package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openblog/apiserver/types"
)

func TestLoginAndMe(t *testing.T) {
	router, _, _ := newTestRouter()

	created := doJSON(t, router, http.MethodPost, "/api/users", map[string]any{
		"username": "alice", "email": "alice@x.com", "password": "s3cret",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: %d: %s", created.Code, created.Body.String())
	}

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"username": "alice", "password": "s3cret",
	})
	if login.Code != http.StatusOK {
		t.Fatalf("login: %d: %s", login.Code, login.Body.String())
	}

	var auth struct {
		Token string     `json:"token"`
		User  types.User `json:"user"`
	}
	decodeBody(t, login, &auth)
	if auth.Token == "" {
		t.Fatalf("expected token")
	}
	if auth.User.Username != "alice" {
		t.Fatalf("unexpected user %+v", auth.User)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("me: %d: %s", recorder.Code, recorder.Body.String())
	}

	var me types.User
	decodeBody(t, recorder, &me)
	if me.ID != auth.User.ID {
		t.Fatalf("expected user %d, got %d", auth.User.ID, me.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _, _ := newTestRouter()

	created := doJSON(t, router, http.MethodPost, "/api/users", map[string]any{
		"username": "alice", "email": "alice@x.com", "password": "s3cret",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: %d", created.Code)
	}

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"username": "alice", "password": "wrong",
	})
	if login.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", login.Code)
	}
}

func TestLoginPasswordlessAccount(t *testing.T) {
	router, _, _ := newTestRouter()

	created := doJSON(t, router, http.MethodPost, "/api/users", map[string]any{
		"username": "alice", "email": "alice@x.com",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create user: %d", created.Code)
	}

	login := doJSON(t, router, http.MethodPost, "/api/auth/login", map[string]any{
		"username": "alice", "password": "anything",
	})
	if login.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", login.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	router, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", recorder.Code)
	}
}
