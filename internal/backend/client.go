// Package backend is the HTTP client for the REST service that owns saved
// forms. Payloads are validated before any request is sent.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/schema"
)

// ErrNotFound matches APIErrors with status 404.
var ErrNotFound = errors.New("form not found")

// fallbackMessage is used when an error response carries no message.
const fallbackMessage = "Something went wrong. Please try again."

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client performs form CRUD against the backend.
type Client struct {
	baseURL  *url.URL
	token    string
	http     *http.Client
	validate *validator.Validate
	log      *log.Entry
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing backend url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("backend url %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  u,
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(),
		log:      log.WithField("component", "backend"),
	}, nil
}

// FormSummary is one entry of the form list.
type FormSummary struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Status    schema.Status `json:"status"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

func (c *Client) ListForms(ctx context.Context) ([]FormSummary, error) {
	var out []FormSummary
	if err := c.do(ctx, http.MethodGet, "/forms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetForm(ctx context.Context, id string) (schema.Form, error) {
	var out schema.Form
	if err := c.do(ctx, http.MethodGet, "/forms/"+url.PathEscape(id), nil, &out); err != nil {
		return schema.Form{}, err
	}
	return out, nil
}

// CreateForm posts a new form and returns it with the backend-assigned id.
func (c *Client) CreateForm(ctx context.Context, f schema.Form) (schema.Form, error) {
	if err := c.check(f); err != nil {
		return schema.Form{}, err
	}
	f.ID = ""
	var out schema.Form
	if err := c.do(ctx, http.MethodPost, "/forms", f, &out); err != nil {
		return schema.Form{}, err
	}
	return out, nil
}

func (c *Client) UpdateForm(ctx context.Context, id string, f schema.Form) (schema.Form, error) {
	if err := c.check(f); err != nil {
		return schema.Form{}, err
	}
	if id == "" {
		return schema.Form{}, errors.New("form id is required")
	}
	f.ID = id
	var out schema.Form
	if err := c.do(ctx, http.MethodPut, "/forms/"+url.PathEscape(id), f, &out); err != nil {
		return schema.Form{}, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

func (c *Client) DeleteForm(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forms/"+url.PathEscape(id), nil, nil)
}

// check runs struct validation and the schema rules on an outgoing form.
func (c *Client) check(f schema.Form) error {
	if err := c.validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fe := make([]schema.FieldError, 0, len(verrs))
			for _, v := range verrs {
				fe = append(fe, schema.FieldError{Field: strings.ToLower(v.Field()), Error: v.Tag()})
			}
			return &schema.ValidationError{Err: schema.ErrInvalidPayload, Fields: fe}
		}
		return errors.Wrap(err, "validating form")
	}
	if strings.TrimSpace(f.Title) == "" {
		return &schema.ValidationError{
			Err:    schema.ErrInvalidPayload,
			Fields: []schema.FieldError{{Field: "title", Error: "required"}},
		}
	}
	return schema.Validate(f.Schema)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	c.log.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(unwrapData(raw), out), "decoding response")
}

// errorMessage extracts a human message from an error body, falling back to
// a generic one.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fallbackMessage
}

// unwrapData strips a {"data": ...} envelope when the backend uses one.
func unwrapData(raw []byte) []byte {
	var env map[string]json.RawMessage
	if json.Unmarshal(raw, &env) != nil {
		return raw
	}
	if data, ok := env["data"]; ok {
		return data
	}
	return raw
}
