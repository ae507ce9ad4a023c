package blogapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodthings/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func TestProbe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Empty(t, r.Header.Get(AuthHeader))
		io.WriteString(w, "API running\n")
	})

	info, err := client.Probe(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "API running", info)
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth", r.URL.Path)
		assert.Equal(t, "abc123", r.Header.Get(AuthHeader))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		json.NewEncoder(w).Encode(map[string]string{"name": "Alice"})
	})

	name, err := client.Me(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"msg":"Token is not valid"}`, kind: ErrUnauthorized, message: "Token is not valid"},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":"nope"}`, kind: ErrUnauthorized, message: "nope"},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Post not found"}`, kind: ErrNotFound, message: "Post not found"},
		{name: "bad request", status: http.StatusBadRequest, body: "plain text", kind: ErrBadRequest, message: "plain text"},
		{name: "server", status: http.StatusBadGateway, body: "", kind: ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.Me(context.Background(), "tok")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.ListPosts(context.Background(), "tok")

	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCancelledContextIsNetworkError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListPosts(ctx, "tok")

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListPosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "abc123", r.Header.Get(AuthHeader))
		io.WriteString(w, `[{"id":1,"title":"Hi"},{"_id":"x","title":"There","likes":2}]`)
	})

	posts, err := client.ListPosts(context.Background(), "abc123")

	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, models.Post{ID: "1", Title: "Hi"}, posts[0])
	assert.Equal(t, "x", posts[1].ID)
	assert.JSONEq(t, "2", string(posts[1].Extra["likes"]))
}

func TestListPostsNullBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	})

	posts, err := client.ListPosts(context.Background(), "abc123")

	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestListPostsMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"posts":`)
	})

	_, err := client.ListPosts(context.Background(), "abc123")

	assert.ErrorIs(t, err, ErrServer)
}

func TestCreatePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var draft models.PostDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.Equal(t, "Hello", draft.Title)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"_id":"p1","title":"Hello","body":"world"}`)
	})

	post, err := client.CreatePost(context.Background(), "tok", models.PostDraft{Title: "Hello", Body: "world"})

	require.NoError(t, err)
	assert.Equal(t, &models.Post{ID: "p1", Title: "Hello", Body: "world"}, post)
}

func TestCreatePostValidation(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.CreatePost(context.Background(), "tok", models.PostDraft{})

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, called)
}

func TestUpdatePostEscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/posts/a%2Fb", r.URL.EscapedPath())
		io.WriteString(w, `{"_id":"a/b","title":"T"}`)
	})

	post, err := client.UpdatePost(context.Background(), "tok", "a/b", models.PostDraft{Title: "T"})

	require.NoError(t, err)
	assert.Equal(t, "a/b", post.ID)
}

func TestDeletePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/posts/1", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(AuthHeader))
		io.WriteString(w, `not even json`)
	})

	assert.NoError(t, client.DeletePost(context.Background(), "tok", "1"))
	assert.ErrorIs(t, client.DeletePost(context.Background(), "tok", ""), ErrInvalidInput)
}

func TestLoginAndRegister(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/api/auth":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "alice@example.com", body["email"])
			io.WriteString(w, `{"token":"login-token"}`)
		case "/api/users":
			assert.Equal(t, "Alice", body["name"])
			io.WriteString(w, `{"token":"register-token"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	token, err := client.Login(ctx, models.Credentials{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "login-token", token)

	token, err = client.Register(ctx, models.Registration{Name: "Alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "register-token", token)

	_, err = client.Login(ctx, models.Credentials{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	_, err := client.Login(context.Background(), models.Credentials{Email: "a@b.co", Password: "secret1"})

	assert.ErrorIs(t, err, ErrServer)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	assert.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("abc123")
	assert.False(t, ok)

	_, ok = TokenExpiry("")
	assert.False(t, ok)
}
