package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSendCooldown(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		SendCooldown:     60 * time.Second,
		SendMaxPerHour:   5,
		SendMaxIPPerHour: 20,
		Clock:            clock,
	})
	defer limiter.Close()

	phone, ip := "+919876543210", "203.0.113.1"

	if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
		t.Fatalf("first send blocked: %s", result.Reason)
	}
	limiter.RecordOTPSend(phone, ip)

	clock.Advance(30 * time.Second)
	result := limiter.CheckOTPSend(phone, ip)
	if result.Allowed {
		t.Fatal("send inside cooldown should be blocked")
	}
	if result.Reason != "cooldown" || result.RetryAfter != 30*time.Second {
		t.Fatalf("got reason %q retry %v", result.Reason, result.RetryAfter)
	}

	clock.Advance(31 * time.Second)
	if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
		t.Fatalf("send after cooldown blocked: %s", result.Reason)
	}
}

func TestSendHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		SendCooldown:     time.Millisecond,
		SendMaxPerHour:   3,
		SendMaxIPPerHour: 20,
		Clock:            clock,
	})
	defer limiter.Close()

	phone, ip := "+919876543210", "203.0.113.1"
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
			t.Fatalf("send %d blocked: %s", i+1, result.Reason)
		}
		limiter.RecordOTPSend(phone, ip)
	}

	clock.Advance(time.Second)
	if result := limiter.CheckOTPSend(phone, ip); result.Allowed || result.Reason != "hourly_limit" {
		t.Fatalf("4th send: allowed=%v reason=%q", result.Allowed, result.Reason)
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
		t.Fatalf("send after window blocked: %s", result.Reason)
	}
}

func TestSendIPLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		SendCooldown:     time.Millisecond,
		SendMaxPerHour:   100,
		SendMaxIPPerHour: 2,
		Clock:            clock,
	})
	defer limiter.Close()

	ip := "203.0.113.2"
	for _, phone := range []string{"+919876543210", "+919876543211"} {
		clock.Advance(time.Second)
		if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
			t.Fatalf("send for %s blocked: %s", phone, result.Reason)
		}
		limiter.RecordOTPSend(phone, ip)
	}

	clock.Advance(time.Second)
	if result := limiter.CheckOTPSend("+919876543212", ip); result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("3rd phone same IP: allowed=%v reason=%q", result.Allowed, result.Reason)
	}
}

func TestVerifyLockout(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		VerifyMaxAttempts:  3,
		VerifyLockout:      5 * time.Minute,
		VerifyMaxIPPerHour: 30,
		Clock:              clock,
	})
	defer limiter.Close()

	phone, ip := "+919876543210", "203.0.113.3"
	for i := 0; i < 3; i++ {
		if result := limiter.CheckOTPVerify(phone, ip); !result.Allowed {
			t.Fatalf("attempt %d blocked: %s", i+1, result.Reason)
		}
		lockedOut := limiter.RecordOTPVerify(phone, ip)
		if lockedOut != (i == 2) {
			t.Fatalf("attempt %d lockedOut = %v", i+1, lockedOut)
		}
	}

	result := limiter.CheckOTPVerify(phone, ip)
	if result.Allowed || result.Reason != "lockout" {
		t.Fatalf("locked attempt: allowed=%v reason=%q", result.Allowed, result.Reason)
	}
	if result.RetryAfter != 5*time.Minute {
		t.Fatalf("RetryAfter = %v, want 5m", result.RetryAfter)
	}

	clock.Advance(5*time.Minute + time.Second)
	if result := limiter.CheckOTPVerify(phone, ip); !result.Allowed {
		t.Fatalf("attempt after lockout blocked: %s", result.Reason)
	}
}

func TestVerifyResetOnSuccess(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		VerifyMaxAttempts:  3,
		VerifyLockout:      5 * time.Minute,
		VerifyMaxIPPerHour: 30,
		Clock:              clock,
	})
	defer limiter.Close()

	phone, ip := "+919876543210", "203.0.113.4"
	for i := 0; i < 2; i++ {
		limiter.RecordOTPVerify(phone, ip)
	}

	limiter.ResetVerifyAttempts(phone)

	for i := 0; i < 3; i++ {
		if result := limiter.CheckOTPVerify(phone, ip); !result.Allowed {
			t.Fatalf("attempt %d after reset blocked: %s", i+1, result.Reason)
		}
		limiter.RecordOTPVerify(phone, ip)
	}
	if result := limiter.CheckOTPVerify(phone, ip); result.Allowed {
		t.Fatal("attempts after reset should still hit the cap")
	}
}

func TestCheckDoesNotConsumeQuota(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		SendCooldown:     60 * time.Second,
		SendMaxPerHour:   1,
		SendMaxIPPerHour: 100,
		Clock:            clock,
	})
	defer limiter.Close()

	phone, ip := "+919876543210", "203.0.113.5"
	for i := 0; i < 10; i++ {
		if result := limiter.CheckOTPSend(phone, ip); !result.Allowed {
			t.Fatalf("check %d blocked without a record", i+1)
		}
	}

	limiter.RecordOTPSend(phone, ip)
	if result := limiter.CheckOTPSend(phone, ip); result.Allowed {
		t.Fatal("check after record should be blocked")
	}
}

func TestGetClientIP(t *testing.T) {
	cases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		want       string
	}{
		{
			name:       "trusted proxy uses rightmost public XFF entry",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "203.0.113.50",
		},
		{
			name:       "all-private XFF falls back to last entry",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "10.0.0.1",
		},
		{
			name:       "X-Real-IP honored when trusted",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			want:       "203.0.113.51",
		},
		{
			name:       "untrusted proxy ignores spoofed XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			want:       "192.168.1.100",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			want:       "192.168.1.100",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r, tc.trustProxy); got != tc.want {
				t.Fatalf("GetClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"+919876543210", "***3210"},
		{"9876543210", "***3210"},
		{"123", "***"},
		{"", "***"},
	}
	for _, tc := range cases {
		if got := SanitizePhone(tc.input); got != tc.want {
			t.Fatalf("SanitizePhone(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:8.8.8.8", false},
		{"203.0.113.50", false},
		{"8.8.8.8", false},
		{"invalid", false},
	}
	for _, tc := range cases {
		if got := isPrivateIP(tc.ip); got != tc.want {
			t.Fatalf("isPrivateIP(%q) = %v, want %v", tc.ip, got, tc.want)
		}
	}
}

func TestCloseStopsPruner(t *testing.T) {
	limiter := New(nil)
	limiter.CheckOTPSend("+919876543210", "203.0.113.6")

	done := make(chan struct{})
	go func() {
		limiter.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}

func TestConcurrentAccess(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		SendCooldown:       time.Millisecond,
		SendMaxPerHour:     1000,
		SendMaxIPPerHour:   1000,
		VerifyMaxAttempts:  1000,
		VerifyLockout:      5 * time.Minute,
		VerifyMaxIPPerHour: 1000,
		Clock:              clock,
	})
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if limiter.CheckOTPSend("+919876543210", "203.0.113.7").Allowed {
					limiter.RecordOTPSend("+919876543210", "203.0.113.7")
				}
				if limiter.CheckOTPVerify("+919876543211", "203.0.113.8").Allowed {
					limiter.RecordOTPVerify("+919876543211", "203.0.113.8")
				}
				limiter.ResetVerifyAttempts("+919876543211")
			}
		}()
	}
	wg.Wait()
}
