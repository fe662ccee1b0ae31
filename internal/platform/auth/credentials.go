package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/croix-presskit/presskit/internal/platform/httpx"
	"github.com/croix-presskit/presskit/internal/platform/requestctx"
)

// ErrInvalidCredentials is returned when the email/password pair does not match.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Credentials is the single fixed admin account. It gates the editing UI only
// and issues no session or token.
type Credentials struct {
	email        string
	password     string
	passwordHash []byte
	realm        string
}

// NewCredentials builds the admin account. When passwordHash is a bcrypt hash it
// takes precedence over the plain password.
func NewCredentials(email, password, passwordHash, realm string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("auth: admin email is required")
	}
	c := &Credentials{email: email, realm: strings.TrimSpace(realm)}
	if hash := strings.TrimSpace(passwordHash); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, errors.New("auth: admin password hash is not a bcrypt hash")
		}
		c.passwordHash = []byte(hash)
	} else {
		if password == "" {
			return nil, errors.New("auth: admin password is required")
		}
		c.password = password
	}
	if c.realm == "" {
		c.realm = "presskit-admin"
	}
	return c, nil
}

// Email returns the configured admin email.
func (c *Credentials) Email() string { return c.email }

// Verify checks the pair in constant time with respect to the password.
func (c *Credentials) Verify(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(strings.TrimSpace(email))), []byte(c.email)) == 1
	var passOK bool
	if len(c.passwordHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) == 1
	}
	if !emailOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// RequireAdmin enforces HTTP Basic credentials on admin routes.
func (c *Credentials) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok || c.Verify(email, password) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+c.realm+`", charset="UTF-8"`)
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "admin credentials required", http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithAdmin(r.Context(), c.email)))
		})
	}
}
