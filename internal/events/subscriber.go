package events

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/metrics"
)

// Event sources, as counted in metrics.
const (
	SourceWebsocket = "websocket"
	SourceWebhook   = "webhook"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultIdleTimeout      = 2 * time.Minute
	defaultMinRedial        = time.Second
	defaultMaxRedial        = 30 * time.Second
)

// ErrMalformedEvent wraps payloads that could not be decoded.
var ErrMalformedEvent = errors.New("malformed event")

// Handler processes one event start-to-finish.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) (domain.Report, error)
}

// StatusSetter is told when the subscription goes up or down.
type StatusSetter interface {
	SetSubscribed(up bool)
}

// Options configures a Subscriber.
type Options struct {
	Endpoint  string // API base URL, http(s)
	AccessKey string
	SecretKey string

	HandshakeTimeout time.Duration
	// IdleTimeout drops the connection when nothing, pings included,
	// arrived for that long.
	IdleTimeout time.Duration
	MinRedial   time.Duration
	MaxRedial   time.Duration

	Status  StatusSetter
	Metrics *metrics.Metrics
}

// Subscriber streams platform events over a websocket and hands them to a
// Handler one at a time.
type Subscriber struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	opts   Options
	logger logger.Logger
}

// SubscribeURL turns the API endpoint into the event stream URL.
func SubscribeURL(endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid api endpoint %q", endpoint)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in api endpoint", u.Scheme)
	}
	u.Path += "/subscribe"
	u.RawQuery = url.Values{"eventNames": {"resource.change", domain.EventPing}}.Encode()
	return u.String(), nil
}

// New creates a subscriber.
func New(opts Options, log logger.Logger) (*Subscriber, error) {
	target, err := SubscribeURL(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.MinRedial <= 0 {
		opts.MinRedial = defaultMinRedial
	}
	if opts.MaxRedial < opts.MinRedial {
		opts.MaxRedial = defaultMaxRedial
	}

	header := http.Header{}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(opts.AccessKey + ":" + opts.SecretKey))
		header.Set("Authorization", "Basic "+creds)
	}

	return &Subscriber{
		url:    target,
		header: header,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		opts:   opts,
		logger: log.With(logger.String("component", "events")),
	}, nil
}

// Run consumes events until ctx is done, redialing with exponential
// backoff whenever the connection drops. It only returns ctx's error.
func (s *Subscriber) Run(ctx context.Context, h Handler) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.MinRedial
	b.MaxInterval = s.opts.MaxRedial
	b.MaxElapsedTime = 0

	for {
		connected, err := s.session(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			b.Reset()
		}

		wait := b.NextBackOff()
		s.logger.Warn("event subscription lost, redialing",
			logger.Duration("in", wait),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// session runs one connection. connected is true when the dial succeeded.
func (s *Subscriber) session(ctx context.Context, h Handler) (connected bool, err error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("failed to subscribe: status %d: %w", resp.StatusCode, err)
		}
		return false, fmt.Errorf("failed to subscribe: %w", err)
	}
	defer func() { _ = conn.Close() }()

	s.setSubscribed(true)
	defer s.setSubscribed(false)
	s.logger.Info("subscribed to platform events")

	// Unblock ReadMessage on shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)); err != nil {
			return true, err
		}
		typ, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("event stream closed: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		s.dispatch(ctx, h, data)
	}
}

func (s *Subscriber) dispatch(ctx context.Context, h Handler, data []byte) {
	Dispatch(ctx, h, data, SourceWebsocket, s.opts.Metrics, s.logger)
}

func (s *Subscriber) setSubscribed(up bool) {
	s.opts.Metrics.SetSubscribed(up)
	if s.opts.Status != nil {
		s.opts.Status.SetSubscribed(up)
	}
}

// Dispatch decodes one raw event and hands it to h. Malformed payloads and
// handler failures are logged and counted; the next event starts fresh.
func Dispatch(ctx context.Context, h Handler, raw []byte, source string, m *metrics.Metrics, log logger.Logger) (domain.Report, error) {
	ev, err := domain.DecodeEvent(raw)
	if err != nil {
		log.Warn("dropping malformed event", logger.String("source", source), logger.Error(err))
		m.ObserveEvent(source, domain.OutcomeRejected)
		return domain.Report{Outcome: domain.OutcomeRejected, Error: err.Error()}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	report, err := h.Handle(ctx, ev)
	if err != nil {
		log.Warn("event handling failed",
			logger.String("source", source),
			logger.String("event_id", ev.ID),
			logger.Error(err))
		if report.Outcome == "" {
			report.Outcome = domain.OutcomeFailed
		}
	}
	m.ObserveEvent(source, report.Outcome)
	return report, err
}
