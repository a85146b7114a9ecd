package session

// Role is the caller's role as reported by the backend
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleBabysitter Role = "babysitter"
	RoleParent     Role = "parent"
	RoleFinance    Role = "finance"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBabysitter, RoleParent, RoleFinance:
		return true
	}
	return false
}

// User is the normalized identity of the signed-in user.
// Role and ID come from unverified token claims: display hints only.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

// Session is the active token pair plus identity.
// AccessToken and RefreshToken are both set or both empty.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// State is the externally visible session state
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// LoginResult is what Login reports; Login never returns an error
type LoginResult struct {
	Success bool
	User    *User
	Error   string
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the body of /auth/login and /auth/register
type authResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	User         *userBody `json:"user"`
}

type userBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// refreshResponse is the body of /auth/refresh-token
type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}
