package daycare

import (
	"context"

	"github.com/erauner12/daycare-client/internal/apiclient"
)

// AuthAPI covers /auth. Session handling proper lives in the session
// manager; these are the raw calls for screens that need them.
type AuthAPI struct {
	rq Requester
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthAPI) Login(ctx context.Context, c Credentials) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/auth/login", c)
}

func (a *AuthAPI) Register(ctx context.Context, r Registration) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/auth/register", r)
}

// CurrentUser fetches GET /auth/me
func (a *AuthAPI) CurrentUser(ctx context.Context) (*apiclient.Response, error) {
	return get(ctx, a.rq, "/auth/me", nil)
}

func (a *AuthAPI) RefreshToken(ctx context.Context, refreshToken string) (*apiclient.Response, error) {
	return post(ctx, a.rq, "/auth/refresh-token", map[string]string{"refreshToken": refreshToken})
}
