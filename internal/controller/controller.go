// Package controller owns the client's session and post list. It reads and
// writes persisted credentials, calls the backend, and applies each response
// to its state as a single transition.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"goodthings/internal/blogapi"
	"goodthings/internal/models"
	"goodthings/internal/state"
	"goodthings/internal/storage"
)

var (
	// ErrNotAuthenticated is returned by operations that need a token when
	// none is held. Nothing is sent and state is unchanged.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrPostNotFound means the collection holds no post with the given id.
	ErrPostNotFound = errors.New("post not in collection")
	// ErrClosed means the response arrived after Close and was dropped.
	ErrClosed = errors.New("controller closed")
	// ErrSessionChanged means the session was replaced while the request was
	// in flight and the response was dropped.
	ErrSessionChanged = errors.New("session changed during request")
)

// BlogAPI is the part of the backend the controller uses.
type BlogAPI interface {
	Probe(ctx context.Context) (string, error)
	Me(ctx context.Context, token string) (string, error)
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Register(ctx context.Context, reg models.Registration) (string, error)
	ListPosts(ctx context.Context, token string) ([]models.Post, error)
	CreatePost(ctx context.Context, token string, draft models.PostDraft) (*models.Post, error)
	UpdatePost(ctx context.Context, token, id string, draft models.PostDraft) (*models.Post, error)
	DeletePost(ctx context.Context, token, id string) error
}

type Options struct {
	// PurgeRejectedToken removes a token the backend refused, from both the
	// store and memory. Network and server failures never purge.
	PurgeRejectedToken bool
	Logger             *slog.Logger
}

type Controller struct {
	api           BlogAPI
	store         storage.Store
	logger        *slog.Logger
	purgeRejected bool

	mu  sync.Mutex
	st  state.State
	// gen counts session replacements: every logout and every stored sign-in.
	gen uint64

	teardown context.Context
	cancel   context.CancelFunc
}

func New(api BlogAPI, store storage.Store, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	teardown, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:           api,
		store:         store,
		logger:        logger,
		purgeRejected: opts.PurgeRejectedToken,
		teardown:      teardown,
		cancel:        cancel,
	}
}

// Close stops the controller. In-flight requests are cancelled and late
// responses are discarded.
func (c *Controller) Close() {
	c.cancel()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Clone()
}

func (c *Controller) Session() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Session
}

// ticket identifies the session a request was sent under.
type ticket struct {
	gen   uint64
	token string
}

func (c *Controller) ticket() ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ticket{gen: c.gen, token: c.st.Session.Token}
}

// opContext ties ctx to the controller's lifetime.
func (c *Controller) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.teardown, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// checkLocked reports why a response can no longer be applied. c.mu must be
// held.
func (c *Controller) checkLocked(ctx context.Context, gen uint64) error {
	if c.teardown.Err() != nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("discard response: %w", err)
	}
	if c.gen != gen {
		return ErrSessionChanged
	}
	return nil
}

// apply replaces the state with fn(state) unless the controller was closed or
// the operation's context ended first.
func (c *Controller) apply(ctx context.Context, fn func(state.State) state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(ctx, c.gen); err != nil {
		return err
	}
	c.st = fn(c.st)
	return nil
}

// applyFor applies the response to a request made under t. The response is
// dropped if the session moved on meanwhile.
func (c *Controller) applyFor(ctx context.Context, t ticket, fn func(state.State) state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(ctx, t.gen); err != nil {
		return err
	}
	if c.st.Session.Token != t.token {
		return ErrSessionChanged
	}
	c.st = fn(c.st)
	return nil
}

// commit persists and applies the outcome of a session check started under
// gen. Both steps are skipped once the session has been replaced.
func (c *Controller) commit(ctx context.Context, gen uint64, persist func(context.Context), fn func(state.State) state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkLocked(ctx, gen); err != nil {
		return err
	}
	if persist != nil {
		persist(ctx)
	}
	c.st = fn(c.st)
	return nil
}

// Start probes the backend and then bootstraps the session, as a fresh page
// load would. A failed probe is only logged.
func (c *Controller) Start(ctx context.Context) error {
	opCtx, done := c.opContext(ctx)
	info, err := c.api.Probe(opCtx)
	if err != nil {
		c.logger.Warn("backend probe failed", "error", err)
	} else if err := c.apply(opCtx, func(s state.State) state.State { return state.ServerProbed(s, info) }); err != nil {
		done()
		return err
	}
	done()

	return c.Authenticate(ctx)
}

// Authenticate bootstraps the session from the persisted token. It is safe to
// call again at any time, for example right after a login stored a new token.
// A logout or sign-in landing while it runs wins; the stale outcome is
// dropped with ErrSessionChanged.
func (c *Controller) Authenticate(ctx context.Context) error {
	ctx, done := c.opContext(ctx)
	defer done()

	gen := c.ticket().gen

	token, err := c.store.Get(ctx, storage.KeyToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logger.Error("reading persisted token", "error", err)
		if applyErr := c.commit(ctx, gen, nil, state.SessionCleared); applyErr != nil {
			return applyErr
		}
		return fmt.Errorf("read persisted token: %w", err)
	}

	if token == "" {
		return c.commit(ctx, gen, func(ctx context.Context) {
			if err := c.store.Remove(ctx, storage.KeyUser); err != nil {
				c.logger.Warn("removing persisted user", "error", err)
			}
		}, state.SessionCleared)
	}

	name, err := c.api.Me(ctx, token)
	if err != nil {
		return c.authFailed(ctx, gen, err)
	}

	err = c.commit(ctx, gen, func(ctx context.Context) {
		if err := c.store.Set(ctx, storage.KeyUser, name); err != nil {
			c.logger.Warn("persisting user", "error", err)
		}
	}, func(s state.State) state.State {
		return state.Authenticated(s, token, name)
	})
	if err != nil {
		return err
	}
	c.logger.Info("session restored", "user", name)

	return c.loadPosts(ctx, ticket{gen: gen, token: token})
}

func (c *Controller) authFailed(ctx context.Context, gen uint64, cause error) error {
	purge := c.purgeRejected && errors.Is(cause, blogapi.ErrUnauthorized)
	c.logger.Error("verifying session", "error", cause, "token_purged", purge)

	keys := []string{storage.KeyUser}
	next := state.UserCleared
	if purge {
		keys = append(keys, storage.KeyToken)
		next = state.SessionCleared
	}

	err := c.commit(ctx, gen, func(ctx context.Context) {
		if err := c.store.Remove(ctx, keys...); err != nil {
			c.logger.Warn("removing persisted credentials", "error", err)
		}
	}, next)
	if err != nil {
		return err
	}
	return fmt.Errorf("verify session: %w", cause)
}

// LoadPosts replaces the collection with the server's list. On failure the
// current collection is kept.
func (c *Controller) LoadPosts(ctx context.Context) error {
	ctx, done := c.opContext(ctx)
	defer done()

	t := c.ticket()
	if t.token == "" {
		return ErrNotAuthenticated
	}
	return c.loadPosts(ctx, t)
}

func (c *Controller) loadPosts(ctx context.Context, t ticket) error {
	posts, err := c.api.ListPosts(ctx, t.token)
	if err != nil {
		c.logger.Error("fetching posts", "error", err)
		return fmt.Errorf("load posts: %w", err)
	}

	return c.applyFor(ctx, t, func(s state.State) state.State {
		return state.PostsLoaded(s, posts)
	})
}

// PostCreated appends a post the backend just created.
func (c *Controller) PostCreated(post models.Post) error {
	t := c.ticket()
	if t.token == "" {
		return ErrNotAuthenticated
	}
	return c.postCreated(c.teardown, t, post)
}

func (c *Controller) postCreated(ctx context.Context, t ticket, post models.Post) error {
	return c.applyFor(ctx, t, func(s state.State) state.State {
		return state.PostAppended(s, post)
	})
}

// PostUpdated swaps in the backend's copy of an edited post, keeping its
// position. A post that is not in the collection is ignored and reported as
// ErrPostNotFound.
func (c *Controller) PostUpdated(post models.Post) error {
	t := c.ticket()
	if t.token == "" {
		return ErrNotAuthenticated
	}
	return c.postUpdated(c.teardown, t, post)
}

func (c *Controller) postUpdated(ctx context.Context, t ticket, post models.Post) error {
	found := true
	err := c.applyFor(ctx, t, func(s state.State) state.State {
		next, ok := state.PostReplaced(s, post)
		found = ok
		return next
	})
	if err != nil {
		return err
	}
	if !found {
		c.logger.Warn("updated post is not in the collection", "post_id", post.ID)
		return fmt.Errorf("apply update to %q: %w", post.ID, ErrPostNotFound)
	}
	return nil
}

// DeletePost deletes on the backend, then drops every local post with id.
func (c *Controller) DeletePost(ctx context.Context, id string) error {
	ctx, done := c.opContext(ctx)
	defer done()

	t := c.ticket()
	if t.token == "" {
		return ErrNotAuthenticated
	}

	if err := c.api.DeletePost(ctx, t.token, id); err != nil {
		c.logger.Error("deleting post", "post_id", id, "error", err)
		return fmt.Errorf("delete post %q: %w", id, err)
	}

	return c.applyFor(ctx, t, func(s state.State) state.State {
		next, _ := state.PostRemoved(s, id)
		return next
	})
}

// CreatePost submits the create form and appends the server's post.
func (c *Controller) CreatePost(ctx context.Context, draft models.PostDraft) (*models.Post, error) {
	ctx, done := c.opContext(ctx)
	defer done()

	t := c.ticket()
	if t.token == "" {
		return nil, ErrNotAuthenticated
	}

	post, err := c.api.CreatePost(ctx, t.token, draft)
	if err != nil {
		c.logger.Error("creating post", "error", err)
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := c.postCreated(ctx, t, *post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost submits the edit form and applies the server's post.
func (c *Controller) UpdatePost(ctx context.Context, id string, draft models.PostDraft) (*models.Post, error) {
	ctx, done := c.opContext(ctx)
	defer done()

	t := c.ticket()
	if t.token == "" {
		return nil, ErrNotAuthenticated
	}

	post, err := c.api.UpdatePost(ctx, t.token, id, draft)
	if err != nil {
		c.logger.Error("updating post", "post_id", id, "error", err)
		return nil, fmt.Errorf("update post %q: %w", id, err)
	}
	if post.ID == "" {
		post.ID = id
	}

	if err := c.postUpdated(ctx, t, *post); err != nil {
		return nil, err
	}
	return post, nil
}

// Login exchanges credentials for a token, persists it and re-runs the
// bootstrap.
func (c *Controller) Login(ctx context.Context, creds models.Credentials) error {
	return c.signIn(ctx, "login", func(ctx context.Context) (string, error) {
		return c.api.Login(ctx, creds)
	})
}

// Register creates an account, then behaves like Login.
func (c *Controller) Register(ctx context.Context, reg models.Registration) error {
	return c.signIn(ctx, "register", func(ctx context.Context) (string, error) {
		return c.api.Register(ctx, reg)
	})
}

func (c *Controller) signIn(ctx context.Context, op string, obtain func(context.Context) (string, error)) error {
	opCtx, done := c.opContext(ctx)
	token, err := obtain(opCtx)
	if err != nil {
		done()
		c.logger.Error(op+" failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	err = c.store.Set(opCtx, storage.KeyToken, token)
	if err == nil {
		c.gen++
	}
	c.mu.Unlock()
	done()
	if err != nil {
		return fmt.Errorf("%s: persist token: %w", op, err)
	}

	return c.Authenticate(ctx)
}

// Logout forgets the session locally. The backend is not contacted. Store
// failures are logged; the in-memory session is always cleared.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	if err := c.store.Remove(ctx, storage.KeyToken, storage.KeyUser); err != nil {
		c.logger.Warn("removing persisted credentials", "error", err)
	}
	c.st = state.LoggedOut(c.st)
}

// SelectPost opens a post from the collection for viewing or editing.
func (c *Controller) SelectPost(id string) (models.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.st.Posts {
		if p.ID == id {
			c.st = state.PostSelected(c.st, &p)
			return p, nil
		}
	}
	return models.Post{}, fmt.Errorf("select %q: %w", id, ErrPostNotFound)
}
