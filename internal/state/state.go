// Package state holds the client's application state and the pure transition
// functions applied to it. Transitions never mutate their input; every one
// returns a fresh State whose Posts slice does not alias the old one.
package state

import (
	"goodthings/internal/models"
)

type State struct {
	Session models.Session
	Posts   []models.Post
	// PostsLoaded is false until the first successful list fetch.
	PostsLoaded bool
	// Selected is the post opened for viewing or editing.
	Selected   *models.Post
	ServerInfo string
}

// Clone returns a deep enough copy for callers to read without holding locks.
func (s State) Clone() State {
	out := s
	out.Posts = clonePosts(s.Posts)
	if s.Selected != nil {
		selected := *s.Selected
		out.Selected = &selected
	}
	return out
}

func clonePosts(posts []models.Post) []models.Post {
	if posts == nil {
		return nil
	}
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out
}

// Authenticated records a token the backend accepted for user.
func Authenticated(s State, token, user string) State {
	out := s.Clone()
	out.Session = models.Session{Token: token, User: user}
	return out
}

// SessionCleared drops both token and user.
func SessionCleared(s State) State {
	out := s.Clone()
	out.Session = models.Session{}
	return out
}

// UserCleared drops the user but keeps whatever token is held.
func UserCleared(s State) State {
	out := s.Clone()
	out.Session.User = ""
	return out
}

// PostsLoaded replaces the whole collection with a server response.
func PostsLoaded(s State, posts []models.Post) State {
	out := s.Clone()
	out.Posts = clonePosts(posts)
	if out.Posts == nil {
		out.Posts = []models.Post{}
	}
	out.PostsLoaded = true
	return out
}

// PostAppended adds a newly created post to the tail.
func PostAppended(s State, post models.Post) State {
	out := s.Clone()
	out.Posts = append(out.Posts, post)
	return out
}

// PostReplaced swaps the first post with a matching id for post, keeping its
// position. ok is false when no post has that id; s is then returned as is.
func PostReplaced(s State, post models.Post) (State, bool) {
	index := -1
	for i, p := range s.Posts {
		if p.ID == post.ID {
			index = i
			break
		}
	}
	if index < 0 {
		return s, false
	}

	out := s.Clone()
	out.Posts[index] = post
	if out.Selected != nil && out.Selected.ID == post.ID {
		selected := post
		out.Selected = &selected
	}
	return out, true
}

// PostRemoved filters out every post with id and reports how many went.
func PostRemoved(s State, id string) (State, int) {
	out := s.Clone()
	kept := make([]models.Post, 0, len(s.Posts))
	for _, p := range s.Posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	removed := len(s.Posts) - len(kept)
	out.Posts = kept
	if out.Selected != nil && out.Selected.ID == id {
		out.Selected = nil
	}
	return out, removed
}

// PostSelected marks post as the one being viewed or edited. A nil post clears
// the selection.
func PostSelected(s State, post *models.Post) State {
	out := s.Clone()
	if post == nil {
		out.Selected = nil
		return out
	}
	selected := *post
	out.Selected = &selected
	return out
}

// LoggedOut clears the session. Posts already on screen are left to the view.
func LoggedOut(s State) State {
	out := SessionCleared(s)
	out.Selected = nil
	return out
}

// ServerProbed records the body of the unauthenticated info probe.
func ServerProbed(s State, info string) State {
	out := s.Clone()
	out.ServerInfo = info
	return out
}
