package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goodthings/internal/models"
)

func posts(ids ...string) []models.Post {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Post{ID: id, Title: "post " + id})
	}
	return out
}

func TestAuthenticatedAndCleared(t *testing.T) {
	s := Authenticated(State{}, "abc123", "Alice")
	assert.Equal(t, models.Session{Token: "abc123", User: "Alice"}, s.Session)

	userless := UserCleared(s)
	assert.Equal(t, models.Session{Token: "abc123"}, userless.Session)
	assert.Equal(t, "Alice", s.Session.User, "input is not mutated")

	assert.Equal(t, models.Session{}, SessionCleared(s).Session)
}

func TestPostsLoadedReplacesCollection(t *testing.T) {
	s := State{Posts: posts("old")}

	loaded := PostsLoaded(s, posts("1", "2"))

	assert.True(t, loaded.PostsLoaded)
	assert.Equal(t, posts("1", "2"), loaded.Posts)
	assert.Equal(t, posts("old"), s.Posts)

	empty := PostsLoaded(s, nil)
	assert.NotNil(t, empty.Posts)
	assert.Empty(t, empty.Posts)
}

func TestPostAppended(t *testing.T) {
	s := State{Posts: posts("1", "2")}
	created := models.Post{ID: "3", Title: "new"}

	out := PostAppended(s, created)

	assert.Len(t, out.Posts, len(s.Posts)+1)
	assert.Equal(t, created, out.Posts[len(out.Posts)-1])
	assert.Len(t, s.Posts, 2)
}

func TestPostAppendedDoesNotAlias(t *testing.T) {
	base := make([]models.Post, 1, 4)
	base[0] = models.Post{ID: "1"}
	s := State{Posts: base}

	a := PostAppended(s, models.Post{ID: "a"})
	b := PostAppended(s, models.Post{ID: "b"})

	assert.Equal(t, "a", a.Posts[1].ID)
	assert.Equal(t, "b", b.Posts[1].ID)
}

func TestPostReplaced(t *testing.T) {
	s := State{Posts: posts("1", "2", "3")}
	s = PostSelected(s, &s.Posts[1])

	updated := models.Post{ID: "2", Title: "edited"}
	out, ok := PostReplaced(s, updated)

	assert.True(t, ok)
	assert.Equal(t, []string{"1", "2", "3"}, ids(out.Posts))
	assert.Equal(t, "edited", out.Posts[1].Title)
	assert.Equal(t, "post 2", s.Posts[1].Title)
	if assert.NotNil(t, out.Selected) {
		assert.Equal(t, "edited", out.Selected.Title)
	}
}

func TestPostReplacedUnknownID(t *testing.T) {
	s := State{Posts: posts("1")}

	out, ok := PostReplaced(s, models.Post{ID: "9"})

	assert.False(t, ok)
	assert.Equal(t, s, out)
}

func TestPostRemoved(t *testing.T) {
	tests := []struct {
		name        string
		posts       []models.Post
		id          string
		wantIDs     []string
		wantRemoved int
	}{
		{name: "single match", posts: posts("1", "2"), id: "1", wantIDs: []string{"2"}, wantRemoved: 1},
		{name: "duplicates", posts: posts("1", "2", "1"), id: "1", wantIDs: []string{"2"}, wantRemoved: 2},
		{name: "no match", posts: posts("1"), id: "5", wantIDs: []string{"1"}, wantRemoved: 0},
		{name: "last one", posts: posts("1"), id: "1", wantIDs: []string{}, wantRemoved: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Posts: tt.posts}

			out, removed := PostRemoved(s, tt.id)

			assert.Equal(t, tt.wantRemoved, removed)
			assert.Equal(t, tt.wantIDs, ids(out.Posts))
			assert.Len(t, out.Posts, len(tt.posts)-removed)
		})
	}
}

func TestPostRemovedClearsSelection(t *testing.T) {
	s := State{Posts: posts("1")}
	s = PostSelected(s, &s.Posts[0])

	out, _ := PostRemoved(s, "1")

	assert.Nil(t, out.Selected)
}

func TestLoggedOut(t *testing.T) {
	s := Authenticated(State{Posts: posts("1")}, "tok", "Bob")
	s = PostSelected(s, &s.Posts[0])

	out := LoggedOut(s)

	assert.Equal(t, models.Session{}, out.Session)
	assert.Nil(t, out.Selected)
}

func TestCloneIsIndependent(t *testing.T) {
	s := State{Posts: posts("1")}
	s = PostSelected(s, &s.Posts[0])

	c := s.Clone()
	c.Posts[0].Title = "changed"
	c.Selected.Title = "changed"

	assert.Equal(t, "post 1", s.Posts[0].Title)
	assert.Equal(t, "post 1", s.Selected.Title)
}

func ids(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}
