// Package gateway talks to an HTTP virtual-pin telemetry gateway: sensor
// values are read from pins and actuators are driven by writing to pins.
package gateway

import (
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

const (
	readPath       = "get"
	writePath      = "update"
	defaultTimeout = 10 * time.Second
	maxBodySize    = 4096
)

// Erros customizados
var (
	ErrInvalidBaseURL = errors.New("invalid gateway base URL")
	ErrInvalidToken   = errors.New("invalid gateway token")
	ErrInvalidPin     = errors.New("invalid pin")
	ErrEmptyPayload   = errors.New("empty pin payload")
)

// ClientOption é uma função para configurar o cliente
type ClientOption func(*Client)

// WithHTTPClient permite configurar um cliente HTTP customizado
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithTimeout permite configurar um timeout customizado
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// Client reads and writes gateway pins.
type Client struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

// NewClient cria uma nova instância do cliente do gateway
func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		token:   token,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ReadPin fetches the current value of a pin.
func (c *Client) ReadPin(ctx context.Context, pin string) (float64, error) {
	if pin == "" {
		return 0, ErrInvalidPin
	}

	body, err := c.do(ctx, readPath, url.Values{
		"token": []string{c.token},
		"pin":   []string{pin},
	})
	if err != nil {
		return 0, err
	}

	v, err := ParseValue(body)
	if err != nil {
		return 0, fmt.Errorf("pin %s: %w", pin, err)
	}
	return v, nil
}

// WritePin sets a pin to value.
func (c *Client) WritePin(ctx context.Context, pin, value string) error {
	if pin == "" {
		return ErrInvalidPin
	}

	_, err := c.do(ctx, writePath, url.Values{
		"token": []string{c.token},
		"pin":   []string{pin},
		"value": []string{value},
	})
	return err
}

func (c *Client) do(ctx context.Context, op string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(op, params), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, NewHTTPError(res.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// buildURL appends op to the base path, so a base of
// https://host/external/api/ yields https://host/external/api/get.
func (c *Client) buildURL(op string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + op
	u.RawQuery = params.Encode()
	return u.String()
}

// ParseValue decodes a pin payload. Gateways answer either with a bare
// number (27.5) or a JSON array whose first element is the value (["27.5"]).
func ParseValue(body []byte) (float64, error) {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return 0, ErrEmptyPayload
	}

	if strings.HasPrefix(text, "[") {
		var values []any
		if err := json.Unmarshal([]byte(text), &values); err != nil {
			return 0, fmt.Errorf("invalid pin payload %q: %w", text, err)
		}
		if len(values) == 0 {
			return 0, ErrEmptyPayload
		}
		switch v := values[0].(type) {
		case float64:
			return v, nil
		case string:
			text = strings.TrimSpace(v)
		default:
			return 0, fmt.Errorf("invalid pin payload %q", text)
		}
	}

	v, err := strconv.ParseFloat(strings.Trim(text, `"`), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid pin payload %q: %w", text, err)
	}
	return v, nil
}

// HTTPError representa um erro HTTP para integração com o sistema de retry
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRetryable implementa a interface RetryableError
func (e *HTTPError) IsRetryable() bool {
	// Erros HTTP 5xx são retentáveis
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewHTTPError cria um novo erro HTTP
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}
