package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// ventana tracks requests of one client IP within a fixed window.
type ventana struct {
	count     int
	windowEnd time.Time
}

// Limiter counts requests per client IP in fixed windows. Expired windows
// are purged lazily, at most once per purgeInterval.
type Limiter struct {
	limit  int
	window time.Duration
	msg    string
	now    func() time.Time

	mu        sync.Mutex
	ips       map[string]*ventana
	lastPurge time.Time
}

func NewLimiter(limit int, window time.Duration, msg string) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		msg:    msg,
		now:    time.Now,
		ips:    make(map[string]*ventana),
	}
}

// allow registers one request from ip and reports whether it is within the
// limit, plus the end of the current window.
func (l *Limiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPurge) > purgeInterval {
		l.purgeLocked(now)
	}

	v, ok := l.ips[ip]
	if !ok {
		v = &ventana{}
		l.ips[ip] = v
	}
	if now.After(v.windowEnd) {
		v.count = 0
		v.windowEnd = now.Add(l.window)
	}
	v.count++
	return v.count <= l.limit, v.windowEnd
}

func (l *Limiter) purgeLocked(now time.Time) {
	purged := 0
	for ip, v := range l.ips {
		if now.After(v.windowEnd) {
			delete(l.ips, ip)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.ips)).Msg("rate limiter purged")
	}
}

// Middleware rejects requests over the limit with 429 and Retry-After.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewLimiter(20, time.Minute, "Demasiados intentos de login. Intente en 1 minuto.").Middleware()
}

// RateLimiter returns a general-purpose limiter of limit requests per window per IP.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return NewLimiter(limit, window, "Demasiadas solicitudes. Intente nuevamente en un momento.").Middleware()
}
