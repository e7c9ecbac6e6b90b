package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
	"golang.org/x/time/rate"
)

const DeviceHeader = "X-Device-ID"

type deviceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// DeviceRateLimiter hands out one token bucket per device. Buckets idle for
// longer than idleTTL are dropped.
type DeviceRateLimiter struct {
	mu       sync.Mutex
	devices  map[string]*deviceLimiter
	r        rate.Limit
	b        int
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
}

func NewDeviceRateLimiter(r rate.Limit, b int) *DeviceRateLimiter {
	return &DeviceRateLimiter{
		devices: make(map[string]*deviceLimiter),
		r:       r,
		b:       b,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (d *DeviceRateLimiter) Allow(device string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastScan) > d.idleTTL {
		for key, l := range d.devices {
			if now.Sub(l.lastSeen) > d.idleTTL {
				delete(d.devices, key)
			}
		}
		d.lastScan = now
	}

	l, ok := d.devices[device]
	if !ok {
		l = &deviceLimiter{limiter: rate.NewLimiter(d.r, d.b)}
		d.devices[device] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// deviceKey identifies the caller by the X-Device-ID header, falling back to
// the remote host.
func deviceKey(r *http.Request) string {
	if device := r.Header.Get(DeviceHeader); device != "" {
		return device
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RateLimitByDevice(limiter *DeviceRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(deviceKey(r)) {
				response.TooManyRequests(w, "Too many punches from this device")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
