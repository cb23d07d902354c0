package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logged tags every request with an id and writes one log line when it completes.
func (s *Server) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// limiter hands out one token bucket per client address.
type limiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	label   string
	clients map[string]*client
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiter(n int, window time.Duration) *limiter {
	if n <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &limiter{
		every:   rate.Every(window / time.Duration(n)),
		burst:   n,
		label:   fmt.Sprintf("%d per %s", n, window),
		clients: make(map[string]*client),
	}
}

func (l *limiter) allow(addr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[addr]
	if !ok {
		if len(l.clients) > 10000 {
			l.sweep(now)
		}
		c = &client{lim: rate.NewLimiter(l.every, l.burst)}
		l.clients[addr] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// sweep drops clients whose bucket has refilled; caller holds mu.
func (l *limiter) sweep(now time.Time) {
	idle := time.Duration(float64(l.burst) / float64(l.every) * float64(time.Second))
	for addr, c := range l.clients {
		if now.Sub(c.seen) > idle {
			delete(l.clients, addr)
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.limiter == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientAddr(r), time.Now()) {
			writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded: "+s.limiter.label)
			return
		}
		h(w, r)
	})
}
