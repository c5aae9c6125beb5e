// Package client is a Go client for the parts API. A Client holds at most
// one session; every request made while it is held carries the session's
// bearer token.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autoparts/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds each API call unless WithTimeout says otherwise.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Image is an image file to upload with a part.
type Image struct {
	Name    string
	Content []byte
}

// Health is the API health report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// envelope is the API's uniform response body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Token   string          `json:"token"`
	User    *models.User    `json:"user"`
}

// Option configures a Client.
type Option func(*Client)

// WithStore persists the session in store.
func WithStore(store SessionStore) Option {
	return func(c *Client) { c.store = store }
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client calls the parts API.
type Client struct {
	baseURL string
	timeout time.Duration
	store   SessionStore

	mu      sync.RWMutex
	session Session
}

// New returns a logged-out client for the API rooted at baseURL, e.g.
// http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		store:   NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Restore loads the persisted session. An unreadable or incomplete session
// is cleared from the store and the client stays logged out.
func (c *Client) Restore() error {
	s, err := c.store.Load()
	if err != nil {
		_ = c.store.Clear()
		c.setSession(Session{})
		return err
	}
	if !s.Valid() {
		c.setSession(Session{})
		return nil
	}
	c.setSession(s)
	return nil
}

// Session returns the session currently held.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Authenticated reports whether a session is held.
func (c *Client) Authenticated() bool {
	return c.Session().Valid()
}

func (c *Client) setSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Login exchanges credentials for a session, which is held and persisted.
func (c *Client) Login(email, password string) (*models.User, error) {
	return c.signIn("/auth/login", map[string]string{"email": email, "password": password})
}

// Register creates an account and signs in as it.
func (c *Client) Register(name, email, password string) (*models.User, error) {
	return c.signIn("/auth/register", map[string]string{"name": name, "email": email, "password": password})
}

func (c *Client) signIn(path string, body map[string]string) (*models.User, error) {
	env, err := c.call(http.MethodPost, path, jsonBody(body))
	if err != nil {
		return nil, err
	}
	s := Session{Token: env.Token, User: env.User}
	if !s.Valid() {
		return nil, fmt.Errorf("%s: response carried no session", path)
	}
	c.setSession(s)
	if err := c.store.Save(s); err != nil {
		return s.User, fmt.Errorf("signed in but failed to persist session: %w", err)
	}
	return s.User, nil
}

// Logout drops the session from memory and from the store.
func (c *Client) Logout() error {
	c.setSession(Session{})
	return c.store.Clear()
}

// Me fetches the signed-in user and refreshes the held session with it.
func (c *Client) Me() (*models.User, error) {
	env, err := c.call(http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	s := c.Session()
	if s.Token != "" {
		s.User = &user
		c.setSession(s)
		_ = c.store.Save(s)
	}
	return &user, nil
}

// ListParts lists parts matching filter.
func (c *Client) ListParts(filter models.PartFilter) ([]models.Part, error) {
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	path := "/parts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	env, err := c.call(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	parts := []models.Part{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &parts); err != nil {
			return nil, fmt.Errorf("failed to decode parts: %w", err)
		}
	}
	return parts, nil
}

// GetPart fetches one part.
func (c *Client) GetPart(id uint) (*models.Part, error) {
	env, err := c.call(http.MethodGet, fmt.Sprintf("/parts/%d", id), nil)
	if err != nil {
		return nil, err
	}
	return decodePart(env.Data)
}

// CreatePart creates a part, uploading image when it is non-nil.
func (c *Client) CreatePart(in models.PartInput, image *Image) (*models.Part, error) {
	env, err := c.call(http.MethodPost, "/parts", partBody(in, image))
	if err != nil {
		return nil, err
	}
	return decodePart(env.Data)
}

// UpdatePart overwrites a part, uploading image when it is non-nil.
func (c *Client) UpdatePart(id uint, in models.PartInput, image *Image) (*models.Part, error) {
	env, err := c.call(http.MethodPut, fmt.Sprintf("/parts/%d", id), partBody(in, image))
	if err != nil {
		return nil, err
	}
	return decodePart(env.Data)
}

// DeletePart deletes a part.
func (c *Client) DeletePart(id uint) error {
	_, err := c.call(http.MethodDelete, fmt.Sprintf("/parts/%d", id), nil)
	return err
}

// Health fetches the API health report.
func (c *Client) Health() (*Health, error) {
	code, body, err := c.do(http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	if code != http.StatusOK {
		return nil, &APIError{Status: code, Message: http.StatusText(code)}
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("failed to decode health report: %w", err)
	}
	return &h, nil
}

func decodePart(raw json.RawMessage) (*models.Part, error) {
	var part models.Part
	if err := json.Unmarshal(raw, &part); err != nil {
		return nil, fmt.Errorf("failed to decode part: %w", err)
	}
	return &part, nil
}

// call performs a request and unwraps the response envelope.
func (c *Client) call(method, path string, body func(*fiber.Agent)) (*envelope, error) {
	code, raw, err := c.do(method, path, body)
	if err != nil {
		return nil, err
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if code >= http.StatusBadRequest {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(code)
		}
		if code == http.StatusUnauthorized && c.Session().Token != "" {
			// The held token was refused; it will not get better.
			_ = c.Logout()
		}
		return nil, &APIError{Status: code, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s %s: failed to decode response: %w", method, path, decodeErr)
	}
	return &env, nil
}

// do sends one request through a fiber agent and returns the raw answer.
func (c *Client) do(method, path string, body func(*fiber.Agent)) (int, []byte, error) {
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	a.Timeout(c.timeout)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token := c.Session().Token; token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		body(a)
	}

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	return code, raw, nil
}

func jsonBody(v any) func(*fiber.Agent) {
	return func(a *fiber.Agent) { a.JSON(v) }
}

// partBody sends a multipart form when an image is attached and JSON
// otherwise. Absent optional fields are left out of both.
func partBody(in models.PartInput, image *Image) func(*fiber.Agent) {
	if image == nil {
		fields := map[string]any{
			"name":     in.Name,
			"brand":    in.Brand,
			"price":    in.Price,
			"stock":    in.Stock,
			"category": in.Category,
		}
		if in.Description != nil {
			fields["description"] = *in.Description
		}
		if in.ImageURL != nil {
			fields["image_url"] = *in.ImageURL
		}
		return jsonBody(fields)
	}

	return func(a *fiber.Agent) {
		args := fiber.AcquireArgs()
		defer fiber.ReleaseArgs(args)
		args.Set("name", in.Name)
		args.Set("brand", in.Brand)
		args.Set("price", in.Price)
		args.Set("stock", in.Stock)
		args.Set("category", in.Category)
		if in.Description != nil {
			args.Set("description", *in.Description)
		}
		if in.ImageURL != nil {
			args.Set("image_url", *in.ImageURL)
		}
		a.FileData(&fiber.FormFile{Fieldname: "image", Name: image.Name, Content: image.Content})
		a.MultipartForm(args)
	}
}
