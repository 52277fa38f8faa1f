package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/majidtaherkhani/etf-service/internal/ratelimit"
	"github.com/rs/zerolog"
)

// RateLimiter counts requests per client key
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// clientResolver identifies the client behind a request. X-Forwarded-For is
// only read when the direct peer is a trusted proxy.
type clientResolver struct {
	trusted []*net.IPNet
}

// newClientResolver parses proxy entries given as IPs or CIDRs
func newClientResolver(proxies []string) (*clientResolver, error) {
	res := &clientResolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", p)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			res.trusted = append(res.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		res.trusted = append(res.trusted, network)
	}
	return res, nil
}

func (c *clientResolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address, or the nearest untrusted hop of
// X-Forwarded-For when the peer is a trusted proxy
func (c *clientResolver) clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !c.isTrusted(peer) {
		return peer
	}

	fwd := r.Header.Values("X-Forwarded-For")
	var hops []string
	for _, v := range fwd {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	// walk from the closest hop back towards the client
	for i := len(hops) - 1; i >= 0; i-- {
		if !c.isTrusted(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return peer
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(clients *clientResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("client", clients.clientIP(r)).
				Msg("Request handled")
		})
	}
}

// rateLimit rejects clients over their quota. Limiter errors let the request through.
func rateLimit(limiter RateLimiter, clients *clientResolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clients.clientIP(r))
			if err != nil {
				log.Warn().Err(err).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
