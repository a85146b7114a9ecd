package devserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/erauner12/daycare-client/internal/apiclient"
	"github.com/erauner12/daycare-client/internal/daycare"
	"github.com/erauner12/daycare-client/internal/devserver"
	"github.com/erauner12/daycare-client/internal/notifications"
	"github.com/erauner12/daycare-client/internal/notify"
	"github.com/erauner12/daycare-client/internal/session"
	"github.com/erauner12/daycare-client/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stack is a console wired against a live devserver
type stack struct {
	srv        *devserver.Server
	baseURL    string
	store      tokenstore.Store
	notices    *notify.Recorder
	sess       *session.Manager
	client     *apiclient.Client
	api        *daycare.API
	refreshes  *atomic.Int32
	navigateMu sync.Mutex
	navigated  []string

	// before, when set, runs ahead of every request the server handles
	before func(*http.Request)
}

func newStack(t *testing.T, store tokenstore.Store) *stack {
	t.Helper()

	srv := devserver.New(devserver.Config{Secret: "integration", BcryptCost: bcrypt.MinCost})
	require.NoError(t, srv.SeedDemo())

	st := &stack{srv: srv, refreshes: &atomic.Int32{}}
	routes := srv.Routes()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh-token" {
			st.refreshes.Add(1)
		}
		if st.before != nil {
			st.before(r)
		}
		routes.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	st.baseURL = ts.URL + "/api"
	st.connect(store)
	return st
}

// connect builds a fresh client stack over store, as a page reload would
func (st *stack) connect(store tokenstore.Store) {
	st.store = store
	st.notices = &notify.Recorder{}
	st.sess = session.NewManager(st.baseURL, store,
		session.WithNotifier(st.notices),
		session.WithNavigator(session.NavigatorFunc(func(path string) {
			st.navigateMu.Lock()
			st.navigated = append(st.navigated, path)
			st.navigateMu.Unlock()
		})),
	)
	st.client = apiclient.New(st.baseURL,
		apiclient.WithCredentials(st.sess),
		apiclient.WithNotifier(st.notices),
	)
	st.api = daycare.New(st.client)
}

func (st *stack) login(t *testing.T, email string) {
	t.Helper()
	res := st.sess.Login(context.Background(), email, devserver.DemoPassword)
	require.True(t, res.Success, res.Error)
}

func decodeList(t *testing.T, resp *apiclient.Response) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &out))
	return out
}

func TestConsole_LoginAndCall(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "admin@daycare.local")

	u := st.sess.Current()
	require.NotNil(t, u)
	assert.Equal(t, session.RoleAdmin, u.Role)
	assert.Equal(t, "Ada Admin", u.Name)

	resp, err := st.api.Admin.Children(context.Background())
	require.NoError(t, err)
	assert.Len(t, decodeList(t, resp), 2)
	assert.Empty(t, st.notices.Messages())
}

func TestConsole_LoginWrongPassword(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())

	res := st.sess.Login(context.Background(), "admin@daycare.local", "wrong")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid email or password", res.Error)
	assert.Equal(t, session.StateAnonymous, st.sess.State())
	assert.Empty(t, st.notices.Messages())
}

func TestConsole_ExpiredAccessTokenRefreshesTransparently(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "admin@daycare.local")
	ctx := context.Background()

	before, err := st.store.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)

	st.srv.ExpireAccessTokens()

	resp, err := st.api.Admin.Children(ctx)
	require.NoError(t, err)
	assert.Len(t, decodeList(t, resp), 2)

	after, err := st.store.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, int32(1), st.refreshes.Load())
	assert.Equal(t, session.StateAuthenticated, st.sess.State())
	assert.Empty(t, st.notices.Messages())
}

func TestConsole_ConcurrentExpiredCallsShareOneRefresh(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "admin@daycare.local")
	st.srv.ExpireAccessTokens()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.api.Incidents.List(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), st.refreshes.Load())
}

func TestConsole_RefreshRejectedEndsSession(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "babysitter@daycare.local")
	ctx := context.Background()

	st.srv.ExpireAccessTokens()
	st.srv.RevokeRefreshTokens()

	_, err := st.api.Babysitter.Children(ctx)
	require.ErrorIs(t, err, apiclient.ErrSessionExpired)

	assert.Equal(t, session.StateAnonymous, st.sess.State())
	assert.Nil(t, st.sess.Current())
	assert.Equal(t, []string{apiclient.MsgRefreshFailed}, st.notices.Messages())
	assert.Equal(t, []string{session.LoginPath}, st.navigated)

	vals, err := tokenstore.Load(ctx, st.store)
	require.NoError(t, err)
	assert.True(t, vals.Empty())
}

func TestConsole_ConcurrentRejectedRefreshEndsSessionOnce(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "babysitter@daycare.local")
	st.srv.ExpireAccessTokens()
	st.srv.RevokeRefreshTokens()

	// hold every first attempt until all have arrived so they share one token
	const n = 6
	var arrived atomic.Int32
	all := make(chan struct{})
	st.before = func(r *http.Request) {
		if r.URL.Path != "/api/babysitter/children" {
			return
		}
		if arrived.Add(1) == n {
			close(all)
		}
		<-all
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.api.Babysitter.Children(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, apiclient.ErrSessionExpired)
	}
	assert.Equal(t, []string{apiclient.MsgRefreshFailed}, st.notices.Messages())
	assert.Equal(t, []string{session.LoginPath}, st.navigated)
	assert.Equal(t, session.StateAnonymous, st.sess.State())
}

func TestConsole_ForbiddenRaisesNotice(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "parent@daycare.local")

	_, err := st.api.Admin.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, apiclient.IsForbidden(err))
	assert.Equal(t, []string{apiclient.MsgForbidden}, st.notices.Messages())
	assert.Equal(t, session.StateAuthenticated, st.sess.State())
}

func TestConsole_ReloadRestoresSession(t *testing.T) {
	store := tokenstore.NewFile(filepath.Join(t.TempDir(), "tokens.json"))
	st := newStack(t, store)
	st.login(t, "babysitter@daycare.local")
	first := st.sess.Current()

	// same backing file, new process
	st.connect(tokenstore.NewFile(filepath.Join(filepath.Dir(store.Path()), "tokens.json")))
	require.NoError(t, st.sess.Restore(context.Background()))

	assert.Equal(t, session.StateAuthenticated, st.sess.State())
	restored := st.sess.Current()
	require.NotNil(t, restored)
	assert.Equal(t, first.ID, restored.ID)
	assert.Equal(t, first.Name, restored.Name)
	assert.Equal(t, first.Role, restored.Role)

	resp, err := st.api.Auth.CurrentUser(context.Background())
	require.NoError(t, err)
	var me map[string]any
	require.NoError(t, resp.Decode(&me))
	assert.Equal(t, "babysitter@daycare.local", me["email"])
}

func TestConsole_LogoutClearsAndRevokes(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "finance@daycare.local")
	ctx := context.Background()

	refresh, err := st.store.Get(ctx, tokenstore.KeyRefreshToken)
	require.NoError(t, err)

	st.sess.Logout(ctx)
	assert.Equal(t, session.StateAnonymous, st.sess.State())

	// the server no longer honours the old refresh token
	anon := daycare.New(apiclient.New(st.baseURL))
	_, err = anon.Auth.RefreshToken(apiclient.Silent(ctx), refresh)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
}

func TestConsole_NotificationPoller(t *testing.T) {
	st := newStack(t, tokenstore.NewMemory())
	st.login(t, "admin@daycare.local")
	ctx := context.Background()

	p := notifications.NewPoller(st.api, st.sess)
	require.NoError(t, p.Refresh(ctx))

	snap := p.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Unread)

	require.NoError(t, p.MarkRead(ctx, snap.Items[0].ID))
	assert.Equal(t, 0, p.Snapshot().Unread)

	require.NoError(t, p.Refresh(ctx))
	assert.Equal(t, 0, p.Snapshot().Unread)

	st.sess.Logout(ctx)
	assert.Empty(t, p.Snapshot().Items)
}
