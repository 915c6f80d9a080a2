package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

// Client provides typed access to the MediApp API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout bounds each request. The default client has no timeout; callers
// cancel through the request context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "perform request: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err means the server could not be reached.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractError returns the server supplied message, preferring "message"
// over "error". Non-JSON bodies are returned trimmed.
func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(payload.Error)
}

// LoginResponse captures the payload emitted by the login endpoint.
type LoginResponse struct {
	Message      string         `json:"message"`
	User         map[string]any `json:"user"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	Expires      string         `json:"expires,omitempty"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	payload := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", payload, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return LoginResponse{}, errors.New("login response missing token")
	}
	if resp.User == nil {
		return LoginResponse{}, errors.New("login response missing user")
	}
	return resp, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	payload := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/refresh", payload, "", &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, input RegisterInput) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", input, "", &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Patient reflects API patient payloads.
type Patient struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DNI             string `json:"dni"`
	MedicalRecordID string `json:"medical_record_id"`
	BirthDate       string `json:"birth_date,omitempty"`
	Gender          string `json:"gender"`
	Email           string `json:"email,omitempty"`
}

// FullName joins first and last name.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ListPatients returns every patient visible to the token holder.
func (c *Client) ListPatients(ctx context.Context, token string) ([]Patient, error) {
	var resp struct {
		Patients []Patient `json:"patients"`
		Total    int       `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/patients", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Patients, nil
}

// GetPatient fetches one patient by id.
func (c *Client) GetPatient(ctx context.Context, token string, id int64) (Patient, error) {
	var resp struct {
		Patient Patient `json:"patient"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/patients/"+strconv.FormatInt(id, 10), nil, token, &resp); err != nil {
		return Patient{}, err
	}
	return resp.Patient, nil
}
