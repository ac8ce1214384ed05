package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MrSnakeDoc/lbsync/internal/events"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/metrics"
	"github.com/MrSnakeDoc/lbsync/internal/status"
	redisstore "github.com/MrSnakeDoc/lbsync/internal/store/redis"
)

// Trigger asks for a full pass; false means one is already pending.
type Trigger interface {
	Trigger() bool
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	AllowedHosts []string // Host headers allowed to access the server
	AllowedCIDRS []string // IPs/CIDRs allowed to reach operational endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy

	Status   *status.Tracker     // local view of passes and subscription
	Store    *redisstore.Store   // nil when Redis is disabled
	Events   events.Handler      // handles webhook events (the reconciler)
	Resync   Trigger             // manual reconciliation trigger
	Metrics  *metrics.Metrics    // may be nil
	Gatherer prometheus.Gatherer // source of /metrics

	EventsBurst  int // webhook rate limit burst per IP
	EventsPerMin int // webhook rate limit refill per IP
}
