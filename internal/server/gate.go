package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/metrics"
	"github.com/abelbrown/viralscope/internal/otel"
)

// ErrRateLimited is returned to clients that exceed their request budget.
// It is a retry-later signal, never a provider failure.
var ErrRateLimited = errors.New("rate limit exceeded")

// idleVisitorTTL is how long an unused client limiter is kept.
const idleVisitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Gate is a per-client token bucket. Safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
	lastGC   time.Time
}

// NewGate allows perSecond requests per client with the given burst.
// perSecond <= 0 disables the gate.
func NewGate(perSecond float64, burst int) *Gate {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Gate{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow takes one token for key. When none is available it returns how
// long until one will be.
func (g *Gate) Allow(key string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.gc(now)

	v, ok := g.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// gc drops idle visitors. Caller holds g.mu.
func (g *Gate) gc(now time.Time) {
	if now.Sub(g.lastGC) < time.Minute {
		return
	}
	g.lastGC = now
	for key, v := range g.visitors {
		if now.Sub(v.lastSeen) > idleVisitorTTL {
			delete(g.visitors, key)
		}
	}
}

// Middleware rejects over-budget clients with 429 and Retry-After.
func (g *Gate) Middleware(m *metrics.Collector, events *otel.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := g.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(wait.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		m.GateReject()
		events.Emit(otel.Event{
			Level: otel.LevelWarn, Kind: otel.KindGateReject, Comp: "server",
			RequestID: c.GetString(requestIDKey), Msg: c.ClientIP(),
		})
		logging.Warn("Rate limit exceeded", "client_ip", c.ClientIP(), "retry_after", retryAfter)

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      "rate_limited",
			"message":    ErrRateLimited.Error() + ", retry later",
			"retryAfter": retryAfter,
		})
	}
}
