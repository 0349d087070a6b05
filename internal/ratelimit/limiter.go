// Package ratelimit throttles OTP send and verify traffic per phone number
// and per client IP.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock abstracts time so limits can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the limits for OTP operations.
type Config struct {
	SendCooldown     time.Duration // minimum gap between sends to one phone
	SendMaxPerHour   int           // sends per phone per hour
	SendMaxIPPerHour int           // sends per IP per hour

	VerifyMaxAttempts  int           // failed verifies before lockout
	VerifyLockout      time.Duration // lockout length once attempts are spent
	VerifyMaxIPPerHour int           // verifies per IP per hour

	Clock Clock // nil uses the system clock
}

func DefaultConfig() *Config {
	return &Config{
		SendCooldown:       60 * time.Second,
		SendMaxPerHour:     5,
		SendMaxIPPerHour:   20,
		VerifyMaxAttempts:  5,
		VerifyLockout:      5 * time.Minute,
		VerifyMaxIPPerHour: 30,
	}
}

// LimitResult reports a limit decision and, when blocked, how long to wait.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string
}

// window counts events in a rolling interval, plus lockout bookkeeping for
// verify attempts.
type window struct {
	count    int
	firstAt  time.Time
	lastAt   time.Time
	lockedAt time.Time
}

// Limiter tracks OTP send and verify windows in memory. Counters are keyed
// by a hash so raw phone numbers never sit in process memory.
type Limiter struct {
	config *Config
	clock  Clock

	mu         sync.RWMutex
	sendByID   map[string]*window
	sendByIP   map[string]*window
	verifyByID map[string]*window
	verifyByIP map[string]*window

	pruneCtx    context.Context
	pruneCancel context.CancelFunc
	pruneOnce   sync.Once
	pruneWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:      cfg,
		clock:       clock,
		sendByID:    make(map[string]*window),
		sendByIP:    make(map[string]*window),
		verifyByID:  make(map[string]*window),
		verifyByIP:  make(map[string]*window),
		pruneCtx:    ctx,
		pruneCancel: cancel,
	}
}

// Close stops the background pruner.
func (l *Limiter) Close() {
	l.pruneCancel()
	l.pruneWg.Wait()
}

// CheckOTPSend reports whether a send is allowed. It does not consume quota;
// call RecordOTPSend once the send actually happens.
func (l *Limiter) CheckOTPSend(phone, ip string) LimitResult {
	l.startPruner()
	now := l.clock.Now()
	idKey := hashKey("send:id:", phone)
	ipKey := hashKey("send:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if w := l.sendByID[idKey]; w != nil {
		if elapsed := now.Sub(w.lastAt); elapsed < l.config.SendCooldown {
			return LimitResult{RetryAfter: l.config.SendCooldown - elapsed, Reason: "cooldown"}
		}
		if now.Sub(w.firstAt) < time.Hour && w.count >= l.config.SendMaxPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(w.firstAt), Reason: "hourly_limit"}
		}
	}
	if w := l.sendByIP[ipKey]; w != nil {
		if now.Sub(w.firstAt) < time.Hour && w.count >= l.config.SendMaxIPPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(w.firstAt), Reason: "ip_hourly_limit"}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordOTPSend consumes send quota for the phone and IP.
func (l *Limiter) RecordOTPSend(phone, ip string) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	bump(l.sendByID, hashKey("send:id:", phone), now)
	bump(l.sendByIP, hashKey("send:ip:", ip), now)
}

// CheckOTPVerify reports whether a verify attempt is allowed.
func (l *Limiter) CheckOTPVerify(phone, ip string) LimitResult {
	l.startPruner()
	now := l.clock.Now()
	idKey := hashKey("verify:id:", phone)
	ipKey := hashKey("verify:ip:", ip)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if w := l.verifyByID[idKey]; w != nil {
		if !w.lockedAt.IsZero() {
			if elapsed := now.Sub(w.lockedAt); elapsed < l.config.VerifyLockout {
				return LimitResult{RetryAfter: l.config.VerifyLockout - elapsed, Reason: "lockout"}
			}
			// Lockout lapsed; RecordOTPVerify resets the window.
		} else if w.count >= l.config.VerifyMaxAttempts {
			return LimitResult{RetryAfter: l.config.VerifyLockout, Reason: "max_attempts"}
		}
	}
	if w := l.verifyByIP[ipKey]; w != nil {
		if now.Sub(w.firstAt) < time.Hour && w.count >= l.config.VerifyMaxIPPerHour {
			return LimitResult{RetryAfter: time.Hour - now.Sub(w.firstAt), Reason: "ip_hourly_limit"}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordOTPVerify consumes a verify attempt and reports whether this attempt
// tripped the lockout.
func (l *Limiter) RecordOTPVerify(phone, ip string) (lockedOut bool) {
	now := l.clock.Now()
	idKey := hashKey("verify:id:", phone)
	ipKey := hashKey("verify:ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.verifyByID[idKey]
	switch {
	case w == nil:
		l.verifyByID[idKey] = &window{count: 1, firstAt: now, lastAt: now}
	case !w.lockedAt.IsZero() && now.Sub(w.lockedAt) >= l.config.VerifyLockout:
		l.verifyByID[idKey] = &window{count: 1, firstAt: now, lastAt: now}
	default:
		w.count++
		w.lastAt = now
		if w.count >= l.config.VerifyMaxAttempts && w.lockedAt.IsZero() {
			w.lockedAt = now
			lockedOut = true
		}
	}

	bump(l.verifyByIP, ipKey, now)
	return lockedOut
}

// ResetVerifyAttempts clears the attempt counter after a successful verify.
func (l *Limiter) ResetVerifyAttempts(phone string) {
	idKey := hashKey("verify:id:", phone)
	l.mu.Lock()
	delete(l.verifyByID, idKey)
	l.mu.Unlock()
}

// bump increments a rolling-hour counter, starting a fresh window when the
// previous one has aged out.
func bump(m map[string]*window, key string, now time.Time) {
	w := m[key]
	if w == nil || now.Sub(w.firstAt) >= time.Hour {
		m[key] = &window{count: 1, firstAt: now, lastAt: now}
		return
	}
	w.count++
	w.lastAt = now
}

func hashKey(prefix, value string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(value)))
	return prefix + hex.EncodeToString(sum[:8])
}

func (l *Limiter) startPruner() {
	l.pruneOnce.Do(func() {
		l.pruneWg.Add(1)
		go func() {
			defer l.pruneWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.pruneCtx.Done():
					return
				case <-ticker.C:
					l.prune()
				}
			}
		}()
	})
}

func (l *Limiter) prune() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range []map[string]*window{l.sendByID, l.sendByIP, l.verifyByIP} {
		for k, w := range m {
			if now.Sub(w.lastAt) > time.Hour {
				delete(m, k)
			}
		}
	}
	// Verify windows live through their lockout.
	maxAge := l.config.VerifyLockout + time.Hour
	for k, w := range l.verifyByID {
		if now.Sub(w.lastAt) > maxAge {
			delete(l.verifyByID, k)
		}
	}
}

// GetClientIP extracts the client IP from a request. With trustProxy set it
// honors X-Forwarded-For (rightmost public entry) and X-Real-IP; otherwise
// only RemoteAddr counts, so a spoofed header cannot dodge the limits.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !isPrivateIP(ip) {
					return ip
				}
			}
			return strings.TrimSpace(parts[len(parts)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if net.ParseIP(r.RemoteAddr) != nil {
			return r.RemoteAddr
		}
		if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
			if candidate := r.RemoteAddr[:idx]; net.ParseIP(candidate) != nil {
				return candidate
			}
		}
		return r.RemoteAddr
	}
	return ip
}

var privateNetworks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid private CIDR: " + cidr)
		}
		privateNetworks = append(privateNetworks, network)
	}
}

func isPrivateIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// SanitizePhone masks a phone number down to its last 4 digits for logs.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) <= 4 {
		return "***"
	}
	return "***" + phone[len(phone)-4:]
}

// LogRateLimitExceeded logs a limit event with a masked phone.
func LogRateLimitExceeded(limitType, phone, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", limitType).
		Str("phone", SanitizePhone(phone)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("OTP rate limit exceeded")
}
