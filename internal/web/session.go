package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"autoparts/internal/models"
	"autoparts/pkg/client"

	"github.com/gofiber/fiber/v2"
)

// CookieStore keeps a browser's session in two cookies: the bearer token and
// the signed-in user. It is bound to a single request.
type CookieStore struct {
	c      *fiber.Ctx
	name   string
	secure bool
	ttl    time.Duration
}

// NewCookieStore returns a store reading and writing the cookies of c.
func NewCookieStore(c *fiber.Ctx, name string, secure bool, ttl time.Duration) *CookieStore {
	return &CookieStore{c: c, name: name, secure: secure, ttl: ttl}
}

func (s *CookieStore) userCookie() string { return s.name + "_user" }

// Load implements client.SessionStore. A missing cookie is an empty session.
func (s *CookieStore) Load() (client.Session, error) {
	token := s.c.Cookies(s.name)
	raw := s.c.Cookies(s.userCookie())
	if token == "" || raw == "" {
		return client.Session{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return client.Session{}, fmt.Errorf("malformed user cookie: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return client.Session{}, fmt.Errorf("malformed user cookie: %w", err)
	}
	return client.Session{Token: token, User: &user}, nil
}

// Save implements client.SessionStore.
func (s *CookieStore) Save(session client.Session) error {
	data, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("failed to encode user cookie: %w", err)
	}
	expires := time.Now().Add(s.ttl)
	s.c.Cookie(s.cookie(s.name, session.Token, expires))
	s.c.Cookie(s.cookie(s.userCookie(), base64.RawURLEncoding.EncodeToString(data), expires))
	return nil
}

// Clear implements client.SessionStore by expiring both cookies.
func (s *CookieStore) Clear() error {
	past := time.Unix(0, 0)
	s.c.Cookie(s.cookie(s.name, "", past))
	s.c.Cookie(s.cookie(s.userCookie(), "", past))
	return nil
}

func (s *CookieStore) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
