package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Secret: "test-secret", BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

type result struct {
	status int
	header http.Header
	body   []byte
}

func (r result) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (r result) list(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) result {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: data}
}

func login(t *testing.T, ts *httptest.Server, email, password string) (access, refresh string) {
	t.Helper()
	res := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	body := res.json(t)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func seedUser(t *testing.T, s *Server, role string) User {
	t.Helper()
	u, err := s.Users().Add("Test "+role, role+"@example.com", "pw-"+role, role)
	require.NoError(t, err)
	return u
}

func TestLoginIssuesTokens(t *testing.T) {
	s, ts := newTestServer(t)
	u := seedUser(t, s, "admin")

	res := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ADMIN@example.com", "password": "pw-admin",
	})
	require.Equal(t, http.StatusOK, res.status)

	body := res.json(t)
	assert.NotEmpty(t, body["accessToken"])
	assert.NotEmpty(t, body["refreshToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, u.ID, user["id"])
	assert.Equal(t, "admin", user["role"])
	assert.NotContains(t, string(res.body), "PasswordHash")

	id, err := s.parseAccessToken(body["accessToken"].(string))
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: u.ID, Role: "admin"}, id)
}

func TestLoginRejected(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "admin")

	res := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid email or password", res.json(t)["message"])
}

func TestRegister(t *testing.T) {
	_, ts := newTestServer(t)

	in := map[string]string{"name": "Nia", "email": "nia@example.com", "password": "secret"}
	res := call(t, ts, http.MethodPost, "/api/auth/register", "", in)
	require.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, "parent", res.json(t)["user"].(map[string]any)["role"])

	res = call(t, ts, http.MethodPost, "/api/auth/register", "", in)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "Email already registered", res.json(t)["message"])

	res = call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestRefreshToken(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "babysitter")
	access, refresh := login(t, ts, "babysitter@example.com", "pw-babysitter")

	s.ExpireAccessTokens()
	res := call(t, ts, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusUnauthorized, res.status)

	res = call(t, ts, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, res.status)
	fresh := res.json(t)["accessToken"].(string)
	require.NotEmpty(t, fresh)

	res = call(t, ts, http.MethodGet, "/api/auth/me", fresh, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "babysitter@example.com", res.json(t)["email"])

	res = call(t, ts, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid refresh token", res.json(t)["message"])
}

func TestLogoutRevokesRefresh(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "parent")
	access, refresh := login(t, ts, "parent@example.com", "pw-parent")

	res := call(t, ts, http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, res.status)

	res = call(t, ts, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestBearerAuth(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "parent")
	access, _ := login(t, ts, "parent@example.com", "pw-parent")

	res := call(t, ts, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "No token provided", res.json(t)["message"])

	res = call(t, ts, http.MethodGet, "/api/auth/me", access+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = call(t, ts, http.MethodGet, "/api/admin/children", access, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = call(t, ts, http.MethodGet, "/api/parent/notifications", access, nil)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestCorrelationIDEchoed(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(CorrelationHeader, "cid-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "cid-123", resp.Header.Get(CorrelationHeader))

	res := call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, res.header.Get(CorrelationHeader))
}

func TestCollections(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "admin")
	token, _ := login(t, ts, "admin@example.com", "pw-admin")

	res := call(t, ts, http.MethodPost, "/api/admin/attendance", token, map[string]any{"childId": "c-1", "date": "2026-10-18"})
	require.Equal(t, http.StatusCreated, res.status)
	created := res.json(t)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	call(t, ts, http.MethodPost, "/api/admin/attendance", token, map[string]any{"childId": "c-2", "date": "2026-10-17"})

	res = call(t, ts, http.MethodGet, "/api/admin/attendance?date=2026-10-18", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	items := res.list(t)
	require.Len(t, items, 1)
	assert.Equal(t, "c-1", items[0]["childId"])

	res = call(t, ts, http.MethodPatch, "/api/admin/attendance/"+id+"/status", token, map[string]any{"status": "present"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "present", res.json(t)["status"])

	res = call(t, ts, http.MethodGet, "/api/admin/attendance/"+id, token, nil)
	assert.Equal(t, "present", res.json(t)["status"])

	res = call(t, ts, http.MethodGet, "/api/admin/attendance/report?date=2026-10-18", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "application/pdf", res.header.Get("Content-Type"))

	res = call(t, ts, http.MethodDelete, "/api/admin/attendance/"+id, token, nil)
	require.Equal(t, http.StatusOK, res.status)

	res = call(t, ts, http.MethodGet, "/api/admin/attendance/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "Attendance not found", res.json(t)["message"])
}

func TestEscapedIDs(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "admin")
	token, _ := login(t, ts, "admin@example.com", "pw-admin")
	s.Resources().Insert("admin/budgets", Record{"id": "b/2", "amount": 10})

	res := call(t, ts, http.MethodGet, "/api/admin/budgets/b%2F2", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "b/2", res.json(t)["id"])
}

func TestNotificationReadMarkers(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "babysitter")
	token, _ := login(t, ts, "babysitter@example.com", "pw-babysitter")

	n1 := s.Resources().Insert("babysitter/notifications", Record{"title": "one"})
	s.Resources().Insert("babysitter/notifications", Record{"title": "two"})
	s.Resources().Insert("babysitter/notifications", Record{"title": "three"})

	res := call(t, ts, http.MethodPut, "/api/babysitter/notifications/"+n1["id"].(string)+"/read", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.json(t)["read"])

	res = call(t, ts, http.MethodPut, "/api/babysitter/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(2), res.json(t)["updated"])

	for _, n := range call(t, ts, http.MethodGet, "/api/babysitter/notifications", token, nil).list(t) {
		assert.Equal(t, true, n["read"])
	}
}

func TestNestedAndStats(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "babysitter")
	token, _ := login(t, ts, "babysitter@example.com", "pw-babysitter")
	child := s.Resources().Insert("babysitter/children", Record{"firstName": "Milo"})
	cid := child["id"].(string)

	res := call(t, ts, http.MethodPost, "/api/babysitter/children/"+cid+"/activities", token, map[string]any{"kind": "nap"})
	require.Equal(t, http.StatusCreated, res.status)
	assert.Equal(t, cid, res.json(t)["parentId"])

	res = call(t, ts, http.MethodGet, "/api/babysitter/children/"+cid+"/activities", token, nil)
	require.Len(t, res.list(t), 1)

	call(t, ts, http.MethodPost, "/api/incidents", token, map[string]any{"status": "open"})
	call(t, ts, http.MethodPost, "/api/incidents", token, map[string]any{"status": "closed"})
	res = call(t, ts, http.MethodGet, "/api/incidents/stats", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	stats := res.json(t)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, map[string]any{"open": float64(1), "closed": float64(1)}, stats["byStatus"])
}

func TestAdminUsers(t *testing.T) {
	s, ts := newTestServer(t)
	seedUser(t, s, "admin")
	sitter := seedUser(t, s, "babysitter")
	token, _ := login(t, ts, "admin@example.com", "pw-admin")

	res := call(t, ts, http.MethodGet, "/api/admin/users?role=babysitter", token, nil)
	require.Equal(t, http.StatusOK, res.status)
	users := res.list(t)
	require.Len(t, users, 1)
	assert.Equal(t, sitter.ID, users[0]["id"])

	res = call(t, ts, http.MethodPut, "/api/admin/users/"+sitter.ID+"/role", token, map[string]string{"role": "finance"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "finance", res.json(t)["role"])

	res = call(t, ts, http.MethodPut, "/api/admin/users/nobody/role", token, map[string]string{"role": "finance"})
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestRefreshStoreExpiry(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := NewRefreshStore(time.Hour, func() time.Time { return now })

	token, sess := store.Create("u-1")
	got, ok := store.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, sess.ID, got.ID)

	now = now.Add(2 * time.Hour)
	_, ok = store.Lookup(token)
	assert.False(t, ok)

	// creating another session sweeps the expired one
	store.Create("u-2")
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.DeleteUserSessions("u-2"))
}

func TestAccessTokenExpiry(t *testing.T) {
	s := New(Config{Secret: "k", AccessTTL: time.Minute, BcryptCost: bcrypt.MinCost})
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, err := s.issueAccessToken(User{ID: "u-1", Role: "admin"})
	require.NoError(t, err)
	_, err = s.parseAccessToken(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.parseAccessToken(token)
	assert.Error(t, err)

	other := New(Config{Secret: "different", BcryptCost: bcrypt.MinCost})
	other.now = s.now
	now = now.Add(-2 * time.Minute)
	_, err = other.parseAccessToken(token)
	assert.Error(t, err)
}
