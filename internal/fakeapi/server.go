package fakeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Prefix is the route prefix of every backend endpoint.
const Prefix = "/api/v1"

// Role ids seeded by the backend.
const (
	AdminRoleID   int64 = 1
	LearnerRoleID int64 = 2
)

// User is a seeded account.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleID   *int64 `json:"role_id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`

	password string
}

// Options configures a [Server].
type Options struct {
	// Secret signs issued tokens.
	Secret []byte
	// TokenTTL is the lifetime of issued tokens. Defaults to 30 minutes.
	TokenTTL time.Duration
	// FrontendURL is where the OAuth redirect lands. Defaults to http://localhost:5173.
	FrontendURL string
	// OAuthEmail is the account the fake Google sign-in resolves to.
	OAuthEmail string
	Now        func() time.Time
}

// Server is the fake backend. Use [Server.Handler] with httptest or net/http.
type Server struct {
	opts Options
	mux  *http.ServeMux

	mu        sync.Mutex
	users     map[string]*User
	nextUser  int64
	revoked   map[string]struct{}
	history   map[int64][]loginActivity
	resources map[string]map[int64]json.RawMessage
	nextID    int64
	uploads   map[string]int
	hits      map[string]int
	otps      map[string]string
}

type loginActivity struct {
	ID        int64     `json:"id"`
	Provider  string    `json:"provider"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Succeeded bool      `json:"succeeded"`
	CreatedAt time.Time `json:"created_at"`
}

// New returns a server seeded with an admin, a super admin and a learner.
func New(opts Options) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakeapi-development-secret-key!!")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.FrontendURL == "" {
		opts.FrontendURL = "http://localhost:5173"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts:      opts,
		users:     make(map[string]*User),
		revoked:   make(map[string]struct{}),
		history:   make(map[int64][]loginActivity),
		resources: make(map[string]map[int64]json.RawMessage),
		uploads:   make(map[string]int),
		hits:      make(map[string]int),
		otps:      make(map[string]string),
	}
	s.AddUser("Admin", "admin@example.com", "admin123", "admin", AdminRoleID)
	s.AddUser("Super Admin", "superadmin@example.com", "super123", "super_admin", AdminRoleID)
	s.AddUser("Learner", "learner@example.com", "learner123", "student", LearnerRoleID)
	s.routes()
	return s
}

// AddUser seeds an account and returns it. An empty password marks an
// OAuth-only account.
func (s *Server) AddUser(name, email, password, role string, roleID int64) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addUserLocked(name, email, password, role, roleID)
}

func (s *Server) addUserLocked(name, email, password, role string, roleID int64) *User {
	s.nextUser++
	id := roleID
	u := &User{
		ID:       s.nextUser,
		Name:     name,
		Email:    strings.ToLower(email),
		RoleID:   &id,
		Role:     role,
		IsActive: true,
		password: password,
	}
	s.users[u.Email] = u
	return u
}

// Handler returns the HTTP handler of the fake backend.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		s.mux.ServeHTTP(w, r)
	})
}

// Hits returns how many requests reached method and path, where path excludes [Prefix].
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+Prefix+path]
}

// TotalHits returns the number of requests received.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// IssueToken signs a token for the user with email, for tests that need a
// session without going through login.
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("unknown user %q", email)
	}
	return s.issueLocked(u)
}

// Revoke makes token fail authentication from now on.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = struct{}{}
}

func (s *Server) issueLocked(u *User) (string, error) {
	now := s.opts.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(u.ID, 10),
		"iat": now.Unix(),
		"exp": now.Add(s.opts.TokenTTL).Unix(),
		"jti": strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatInt(u.ID, 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.opts.Secret)
}

var errUnauthenticated = errors.New("Could not validate credentials")

func (s *Server) authenticate(r *http.Request) (*User, string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, "", errors.New("Not authenticated")
	}

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return s.opts.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.opts.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, "", errUnauthenticated
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return nil, "", errUnauthenticated
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, "", errUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.revoked[token]; gone {
		return nil, "", errUnauthenticated
	}
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, token, nil
		}
	}
	return nil, "", errUnauthenticated
}

func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request, *User, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, token, err := s.authenticate(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, u, token)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}},
	})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) callbackURL(values url.Values) string {
	return strings.TrimRight(s.opts.FrontendURL, "/") + "/oauth/callback?" + values.Encode()
}
