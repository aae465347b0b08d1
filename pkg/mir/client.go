package mir

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"go.uber.org/multierr"
)

// Client talks to one robot. It is safe for concurrent use.
type Client struct {
	baseURL    string
	authHeader string
	timeout    time.Duration
	logger     customlog.Logger
}

// NewClient creates a client for host (a hostname, host:port, or full URL).
func NewClient(host, username, password string, timeout time.Duration, logger customlog.Logger) *Client {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(host, "/") + APIVersionPath,
		authHeader: AuthorizationHeader(username, password),
		timeout:    timeout,
		logger:     logger,
	}
}

// AuthorizationHeader builds the MiR basic auth value: the password is sent
// as its hex SHA-256 digest.
func AuthorizationHeader(username, password string) string {
	sum := sha256.Sum256([]byte(password))
	creds := username + ":" + hex.EncodeToString(sum[:])
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// BaseURL returns the API root the client sends requests to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetStatus returns the full robot status.
func (c *Client) GetStatus(ctx context.Context, raw bool) (*Response, error) {
	return c.call(ctx, fiber.MethodGet, "/status", nil, raw)
}

// GetMode returns the robot mode id and text.
func (c *Client) GetMode(ctx context.Context, raw bool) (*Response, error) {
	code, body, err := c.do(ctx, fiber.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	resp := &Response{Method: fiber.MethodGet, Path: "/status", StatusCode: code}
	if raw {
		resp.Data = string(body)
		return resp, nil
	}
	var mode Mode
	if err := json.Unmarshal(body, &mode); err != nil {
		return nil, fmt.Errorf("failed to decode mode from status: %w", err)
	}
	resp.Data = mode
	return resp, nil
}

// ToggleRunState pauses a running robot and readies a paused one. The
// response is the one of the PUT.
func (c *Client) ToggleRunState(ctx context.Context, raw bool) (*Response, error) {
	status, err := c.status(ctx)
	if err != nil {
		return nil, err
	}
	target := StatePause
	if status.StateID == StatePause {
		target = StateReady
	}
	c.logger.Infof("Toggling robot state %d (%s) -> %d", status.StateID, status.StateText, target)
	return c.call(ctx, fiber.MethodPut, "/status", StateChange{StateID: target}, raw)
}

// ClearMissionQueue deletes every pending mission.
func (c *Client) ClearMissionQueue(ctx context.Context, raw bool) (*Response, error) {
	return c.call(ctx, fiber.MethodDelete, "/mission_queue", nil, raw)
}

func (c *Client) status(ctx context.Context) (*Status, error) {
	_, body, err := c.do(ctx, fiber.MethodGet, "/status", nil)
	if err != nil {
		return nil, err
	}
	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload interface{}, raw bool) (*Response, error) {
	code, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	resp := &Response{Method: method, Path: path, StatusCode: code}
	switch {
	case raw:
		resp.Data = string(body)
	case len(body) > 0:
		var decoded interface{}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
		resp.Data = decoded
	}
	return resp, nil
}

// do performs one request and maps transport failures and non-2xx codes to errors.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, nil, ctx.Err()
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	a.Set(fiber.HeaderAuthorization, c.authHeader)
	a.Set("Accept-Language", "en_US")
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if payload != nil {
		a.JSON(payload)
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, fmt.Errorf("failed to prepare %s %s: %w", method, path, err)
	}

	c.logger.Debugf("MiR request %s %s", method, path)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("mir api %s %s failed: %w", method, path, multierr.Combine(errs...))
	}
	if code < 200 || code > 299 {
		return code, body, &APIError{Method: method, Path: path, StatusCode: code, Body: string(body)}
	}
	return code, body, nil
}
