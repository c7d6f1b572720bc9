package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGuard(t *testing.T) {
	g := NewGuard("hunter2", 8*time.Hour, true)
	if !g.Configured() {
		t.Fatal("Configured() = false")
	}
	if !g.CheckPassword("hunter2") || g.CheckPassword("hunter3") || g.CheckPassword("") {
		t.Error("CheckPassword mismatch")
	}

	cookie := g.SessionCookie()
	sum := sha256.Sum256([]byte("hunter2"))
	if cookie.Value != hex.EncodeToString(sum[:]) {
		t.Errorf("cookie value = %q", cookie.Value)
	}
	if cookie.Name != CookieName || cookie.Path != "/" || !cookie.HttpOnly || !cookie.Secure {
		t.Errorf("cookie attributes = %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v", cookie.SameSite)
	}
	if cookie.MaxAge != 8*60*60 {
		t.Errorf("MaxAge = %d", cookie.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/articles", nil)
	if g.Authorized(req) {
		t.Error("Authorized without cookie")
	}
	req.AddCookie(cookie)
	if !g.Authorized(req) {
		t.Error("Authorized with valid cookie = false")
	}

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: CookieName, Value: "hunter2"})
	if g.Authorized(bad) {
		t.Error("raw password accepted as session")
	}
}

func TestGuard_Unconfigured(t *testing.T) {
	g := NewGuard("", time.Hour, false)
	if g.Configured() {
		t.Fatal("Configured() = true")
	}
	if g.CheckPassword("") {
		t.Error("empty password accepted")
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: ""})
	if g.Authorized(req) {
		t.Error("Authorized on unconfigured guard")
	}
}

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(time.Minute, 3)
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("1.2.3.4:admin"); !ok {
			t.Fatalf("request %d refused", i+1)
		}
	}
	ok, retry := l.Allow("1.2.3.4:admin")
	if ok {
		t.Fatal("4th request allowed")
	}
	if retry != 60 {
		t.Errorf("retryAfter = %d, want 60", retry)
	}

	// other scopes and clients have their own windows
	if ok, _ := l.Allow("1.2.3.4:articles"); !ok {
		t.Error("separate scope refused")
	}
	if ok, _ := l.Allow("5.6.7.8:admin"); !ok {
		t.Error("separate client refused")
	}

	now = now.Add(30*time.Second + 500*time.Millisecond)
	if _, retry := l.Allow("1.2.3.4:admin"); retry != 30 {
		t.Errorf("retryAfter = %d, want 30", retry)
	}

	// the reset instant itself is still inside the window
	now = time.Unix(1060, 0)
	if ok, _ := l.Allow("1.2.3.4:admin"); ok {
		t.Error("allowed at reset instant")
	}
	now = now.Add(time.Millisecond)
	if ok, _ := l.Allow("1.2.3.4:admin"); !ok {
		t.Error("refused after window reset")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(time.Second, 1)
	l.SetClock(func() time.Time { return now })
	for i := 0; i < sweepThreshold; i++ {
		l.Allow(string(rune('a'+i%26)) + time.Duration(i).String())
	}
	now = now.Add(2 * time.Second)
	l.Allow("fresh")
	if len(l.entries) != 1 {
		t.Errorf("entries after sweep = %d, want 1", len(l.entries))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		fwd    string
		remote string
		want   string
	}{
		{"forwarded", "203.0.113.9, 10.0.0.1", "10.0.0.2:5555", "203.0.113.9"},
		{"forwarded blank first", " , 10.0.0.1", "10.0.0.2:5555", "unknown"},
		{"remote", "", "192.0.2.7:1234", "192.0.2.7"},
		{"remote without port", "", "192.0.2.7", "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.fwd != "" {
				req.Header.Set("X-Forwarded-For", tt.fwd)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
