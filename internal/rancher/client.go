package rancher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/utils"
)

const (
	// DefaultTimeout bounds every single request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
	maxPages         = 100
)

// Options configures the platform API client.
type Options struct {
	Endpoint   string        // API base URL (ex: http://rancher:8080/v1)
	AccessKey  string        // basic auth user
	SecretKey  string        // basic auth password
	Timeout    time.Duration // per-request timeout
	HTTPClient *http.Client  // optional, for tests
}

// Client gives typed access to the platform resources lbsync needs.
// It keeps no state between calls: every reconciliation re-fetches.
type Client struct {
	endpoint  string
	accessKey string
	secretKey string
	timeout   time.Duration
	http      *http.Client
	logger    logger.Logger
}

// New creates a platform API client.
func New(opts Options, log logger.Logger) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api endpoint %q", opts.Endpoint)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}

	return &Client{
		endpoint:  strings.TrimRight(opts.Endpoint, "/"),
		accessKey: opts.AccessKey,
		secretKey: opts.SecretKey,
		timeout:   timeout,
		http:      httpClient,
		logger:    log,
	}, nil
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// GetEnvironment fetches the stack an event points at.
func (c *Client) GetEnvironment(ctx context.Context, link string) (domain.Stack, error) {
	var res stackResource
	if err := c.do(ctx, http.MethodGet, link, nil, &res); err != nil {
		return domain.Stack{}, err
	}
	return res.toDomain(), nil
}

// ListStacks returns every stack, whatever its state.
func (c *Client) ListStacks(ctx context.Context) ([]domain.Stack, error) {
	resources, err := listAll[stackResource](ctx, c, c.endpoint+"/environments")
	if err != nil {
		return nil, err
	}
	stacks := make([]domain.Stack, 0, len(resources))
	for _, r := range resources {
		stacks = append(stacks, r.toDomain())
	}
	return stacks, nil
}

// ListServices returns the services of a stack.
func (c *Client) ListServices(ctx context.Context, stack domain.Stack) ([]domain.Service, error) {
	if stack.ServicesLink == "" {
		return nil, fmt.Errorf("stack %s has no services link", stack.Name)
	}
	resources, err := listAll[serviceResource](ctx, c, stack.ServicesLink)
	if err != nil {
		return nil, err
	}
	services := make([]domain.Service, 0, len(resources))
	for _, r := range resources {
		services = append(services, r.toDomain(stack.Name))
	}
	return services, nil
}

// ListCertificates returns every certificate known to the platform.
func (c *Client) ListCertificates(ctx context.Context) ([]domain.Certificate, error) {
	resources, err := listAll[certificateResource](ctx, c, c.endpoint+"/certificate")
	if err != nil {
		return nil, err
	}
	certs := make([]domain.Certificate, 0, len(resources))
	for _, r := range resources {
		certs = append(certs, domain.Certificate{ID: r.ID, Name: r.Name})
	}
	return certs, nil
}

// SetServiceLinks replaces the complete routing table of the load balancer.
func (c *Client) SetServiceLinks(ctx context.Context, lb domain.Service, entries []domain.ServiceLinkEntry) error {
	if lb.SetServiceLinksAction == "" {
		return fmt.Errorf("load balancer %s does not expose setservicelinks", lb.ID)
	}
	if entries == nil {
		entries = []domain.ServiceLinkEntry{}
	}
	return c.do(ctx, http.MethodPost, lb.SetServiceLinksAction, setServiceLinksRequest{ServiceLinks: entries}, nil)
}

// SetCertificates replaces the complete certificate list of the load balancer.
func (c *Client) SetCertificates(ctx context.Context, lb domain.Service, ids []string) error {
	if lb.SelfLink == "" {
		return fmt.Errorf("load balancer %s has no self link", lb.ID)
	}
	if ids == nil {
		ids = []string{}
	}
	return c.do(ctx, http.MethodPut, lb.SelfLink, setCertificatesRequest{CertificateIDs: ids}, nil)
}

// listAll follows pagination links until the collection is exhausted.
func listAll[T any](ctx context.Context, c *Client, link string) ([]T, error) {
	var all []T
	for page := 0; link != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("too many pages listing %s", link)
		}
		var col collection[T]
		if err := c.do(ctx, http.MethodGet, link, nil, &col); err != nil {
			return nil, err
		}
		all = append(all, col.Data...)
		link = col.next()
	}
	return all, nil
}

// do performs one authenticated JSON request under the per-request timeout.
func (c *Client) do(ctx context.Context, method, link string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, link, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accessKey, c.secretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.OrchestrationAPIError{
			Method:  method,
			URL:     link,
			Timeout: isTimeout(err),
			Err:     err,
		}
	}
	defer utils.Close(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.OrchestrationAPIError{
			Method:  method,
			URL:     link,
			Timeout: isTimeout(err),
			Err:     fmt.Errorf("failed to read response: %w", err),
		}
	}

	c.logger.Debug("orchestration api call",
		logger.String("method", method),
		logger.String("url", link),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.OrchestrationAPIError{
			Method: method,
			URL:    link,
			Status: resp.StatusCode,
			Body:   truncate(string(data), maxErrorBody),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, link, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
