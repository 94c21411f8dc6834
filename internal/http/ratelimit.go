package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "lin",
	Subsystem: "admin",
	Name:      "rate_limited_total",
	Help:      "Admin requests rejected by the rate limiter.",
})

func init() {
	prometheus.MustRegister(rateLimited)
}

// limiter allows a fixed number of requests per client per window.
type limiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start    time.Time
	requests int
}

func newLimiter(limit int, period time.Duration) *limiter {
	l := &limiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup(10 * period)
	return l
}

func (l *limiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[client]
	if !ok || now.Sub(w.start) >= l.period {
		l.clients[client] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= l.limit
}

// cleanup drops clients idle for longer than maxAge.
func (l *limiter) cleanup(maxAge time.Duration) {
	ticker := time.NewTicker(maxAge)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-maxAge)
			for client, w := range l.clients {
				if w.start.Before(cutoff) {
					delete(l.clients, client)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

func (l *limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := r.RemoteAddr
		if ip := remoteIP(r); ip != nil {
			client = ip.String()
		}
		if !l.allow(client) {
			rateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(l.period.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
