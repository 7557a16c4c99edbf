package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/testutil"
)

func TestPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("abc123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h == "abc123" {
		t.Fatal("hash must not equal the plain password")
	}
	if !CheckPassword(h, "abc123") {
		t.Error("expected match")
	}
	if CheckPassword(h, "abc124") {
		t.Error("expected mismatch")
	}
	if CheckPassword("not-a-hash", "abc123") {
		t.Error("garbage hash must not match")
	}
}

func TestInitializeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := testutil.TestKV(t)
	g := NewGate(store, time.Hour)

	ok, err := g.Initialized(ctx)
	if err != nil || ok {
		t.Fatalf("Initialized = %v, %v; want false, nil", ok, err)
	}
	if _, err := g.Login(ctx, "abc123"); !errors.Is(err, apperr.ErrNotInitialized) {
		t.Errorf("Login before init: got %v, want ErrNotInitialized", err)
	}

	if err := g.Initialize(ctx, ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty password: got %v, want ErrInvalidInput", err)
	}
	if ok, _ := g.Initialized(ctx); ok {
		t.Fatal("rejected init must not create config")
	}

	if err := g.Initialize(ctx, "abc123"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	ok, err = g.Initialized(ctx)
	if err != nil || !ok {
		t.Fatalf("Initialized = %v, %v; want true, nil", ok, err)
	}

	cfg, err := kv.GetJSON[models.Config](ctx, store, kv.ConfigKey)
	if err != nil {
		t.Fatalf("GetJSON config: %v", err)
	}
	if cfg.Password == "abc123" || !CheckPassword(cfg.Password, "abc123") {
		t.Errorf("stored password is not a hash of the input: %q", cfg.Password)
	}
	if len(cfg.Secret) != 2*secretBytes {
		t.Errorf("secret length = %d, want %d", len(cfg.Secret), 2*secretBytes)
	}

	if err := g.Initialize(ctx, "other"); !errors.Is(err, apperr.ErrAlreadyInitialized) {
		t.Errorf("second init: got %v, want ErrAlreadyInitialized", err)
	}
}

func TestLoginAndVerify(t *testing.T) {
	ctx := context.Background()
	g := NewGate(testutil.TestKV(t), time.Hour)
	if err := g.Initialize(ctx, "abc123"); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Login(ctx, "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("wrong password: got %v, want ErrUnauthorized", err)
	}

	token, err := g.Login(ctx, "abc123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := g.Verify(ctx, token); err != nil {
		t.Errorf("Verify fresh token: %v", err)
	}

	for name, bad := range map[string]string{
		"empty":    "",
		"garbage":  "not.a.token",
		"tampered": token + "x",
	} {
		if err := g.Verify(ctx, bad); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("%s: got %v, want ErrUnauthorized", name, err)
		}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	ctx := context.Background()
	g := NewGate(testutil.TestKV(t), time.Hour)
	if err := g.Initialize(ctx, "pw"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	g.now = func() time.Time { return start }
	token, err := g.Login(ctx, "pw")
	if err != nil {
		t.Fatal(err)
	}

	g.now = func() time.Time { return start.Add(59 * time.Minute) }
	if err := g.Verify(ctx, token); err != nil {
		t.Errorf("before expiry: %v", err)
	}
	g.now = func() time.Time { return start.Add(2 * time.Hour) }
	if err := g.Verify(ctx, token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("after expiry: got %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()
	g := NewGate(testutil.TestKV(t), time.Hour)
	if err := g.Initialize(ctx, "pw"); err != nil {
		t.Fatal(err)
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionSubject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Verify(ctx, forged); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("foreign secret: got %v, want ErrUnauthorized", err)
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(1, 3)
	for i := range 3 {
		if !th.Allow() {
			t.Fatalf("attempt %d throttled within burst", i+1)
		}
	}
	if th.Allow() {
		t.Error("attempt past burst allowed")
	}

	off := NewThrottle(0, 0)
	for range 100 {
		if !off.Allow() {
			t.Fatal("disabled throttle must always allow")
		}
	}
}

func TestSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", 720*time.Hour, true)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || c.Value != "tok" || c.MaxAge != 2592000 || !c.HttpOnly || !c.Secure {
		t.Errorf("unexpected cookie %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := TokenFromRequest(req); got != "" {
		t.Errorf("no cookie: got %q", got)
	}
	req.AddCookie(c)
	if got := TokenFromRequest(req); got != "tok" {
		t.Errorf("TokenFromRequest = %q, want tok", got)
	}

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, false)
	if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 {
		t.Errorf("cleared cookie MaxAge = %d, want < 0", c.MaxAge)
	}
}
