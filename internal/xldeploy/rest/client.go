package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

const (
	// DefaultContext is the context root of the server API when the URL has no path.
	DefaultContext = "deployit"
	// DefaultSocketTimeout is the timeout of every request.
	DefaultSocketTimeout = 60 * time.Second
	// DefaultConnectionPoolSize is the number of idle connections kept to the server.
	DefaultConnectionPoolSize = 25

	emptyPlanMessage = "did not deliver any steps"
	xmlContentType   = "application/xml"
)

var _ xldeploy.Server = &Client{}

// ClientConfig is the configuration of the REST client.
type ClientConfig struct {
	Server model.ServerConfig
	// HTTPClient replaces the client built from the server config.
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Server.SocketTimeout < 0 {
		return fmt.Errorf("socket timeout can't be negative")
	}
	if c.Server.SocketTimeout == 0 {
		c.Server.SocketTimeout = DefaultSocketTimeout
	}
	if c.Server.ConnectionPoolSize < 0 {
		return fmt.Errorf("connection pool size can't be negative")
	}
	if c.Server.ConnectionPoolSize == 0 {
		c.Server.ConnectionPoolSize = DefaultConnectionPoolSize
	}

	if c.HTTPClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxIdleConnsPerHost = c.Server.ConnectionPoolSize
		if c.Server.ProxyURL != "" {
			proxy, err := url.Parse(c.Server.ProxyURL)
			if err != nil {
				return fmt.Errorf("invalid proxy URL: %w", err)
			}
			transport.Proxy = http.ProxyURL(proxy)
		}
		c.HTTPClient = &http.Client{Transport: transport, Timeout: c.Server.SocketTimeout}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "xldeploy.REST"})

	return nil
}

// Client is an XL Deploy server accessed through its REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     log.Logger

	mu         sync.Mutex
	supertypes map[string][]string
}

// NewClient returns a new REST client for the configured server.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	baseURL, err := BaseURL(cfg.Server.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Logger.Debugf("Using server API at %s", baseURL)

	return &Client{
		baseURL:    baseURL,
		username:   cfg.Server.Username,
		password:   cfg.Server.Password,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		supertypes: map[string][]string{},
	}, nil
}

// BaseURL returns the API base URL of a server URL. The port defaults to the scheme
// port and the path, when empty, to the default context root.
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", rawURL)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", rawURL)
	}

	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	root := strings.Trim(u.Path, "/")
	if root == "" {
		root = DefaultContext
	}

	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, root), nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + "/" + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", xmlContentType)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	// Preemptive, the server does not always challenge.
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debugf("%s %s", r.method, u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response of %s %s: %w", r.method, r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(r, resp.StatusCode, body)
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query})
}

func (c *Client) postXML(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodPost, path: path, body: bytes.NewReader(body), contentType: xmlContentType})
}

func responseError(r request, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s %s: %s: %w", r.method, r.path, msg, model.ErrNotFound)
	case strings.Contains(msg, emptyPlanMessage):
		return fmt.Errorf("%s: %w", msg, model.ErrEmptyPlan)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s %s: access denied (%d): %s", r.method, r.path, status, msg)
	default:
		return fmt.Errorf("%s %s: server returned %d: %s", r.method, r.path, status, msg)
	}
}

// idPath escapes every segment of a repository ID, the server expects the
// segments as path segments.
func idPath(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
