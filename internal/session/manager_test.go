package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tv-bridge/internal/tradovate"
)

type fakeLoginClient struct {
	mu    sync.Mutex
	calls int
	resp  tradovate.AccessTokenResponse
	err   error
}

func (f *fakeLoginClient) Authenticate(ctx context.Context) (tradovate.AccessTokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return tradovate.AccessTokenResponse{}, f.err
	}
	return f.resp, nil
}

func (f *fakeLoginClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestToken_CachedTokenSkipsLogin(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{
		AccessToken:    "tok-1",
		ExpirationTime: base.Add(80 * time.Minute).Format(time.RFC3339),
	}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	for i := 0; i < 5; i++ {
		tok, err := m.Token(context.Background(), false)
		if err != nil {
			t.Fatalf("Token returned error: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("unexpected token %q", tok)
		}
	}

	if got := client.callCount(); got != 1 {
		t.Fatalf("expected exactly 1 login call, got %d", got)
	}
}

func TestToken_RefreshesAfterExpiry(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{
		AccessToken:    "tok-1",
		ExpirationTime: base.Add(5 * time.Minute).Format(time.RFC3339),
	}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}

	// 剩余寿命低于安全边际即视为不可用。
	client.resp.AccessToken = "tok-2"
	m.now = fixedClock(base.Add(5*time.Minute - 10*time.Second))

	tok, err := m.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-2" {
		t.Fatalf("expected refreshed token, got %q", tok)
	}
	if got := client.callCount(); got != 2 {
		t.Fatalf("expected 2 login calls, got %d", got)
	}
	if !m.issuedAt.Equal(base.Add(5*time.Minute - 10*time.Second)) {
		t.Fatalf("issuedAt not updated together with token: %v", m.issuedAt)
	}
}

func TestToken_ForceAlwaysLogsIn(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{
		AccessToken:    "tok-1",
		ExpirationTime: base.Add(time.Hour).Format(time.RFC3339),
	}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if _, err := m.Token(context.Background(), true); err != nil {
		t.Fatalf("forced Token returned error: %v", err)
	}

	if got := client.callCount(); got != 2 {
		t.Fatalf("expected forced refresh to log in again, got %d calls", got)
	}
}

func TestToken_ConcurrentExpiryIssuesSingleLogin(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{
		AccessToken:    "tok-1",
		ExpirationTime: base.Add(time.Hour).Format(time.RFC3339),
	}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Token(context.Background(), false); err != nil {
				t.Errorf("Token returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := client.callCount(); got != 1 {
		t.Fatalf("expected concurrent callers to share 1 login, got %d", got)
	}
}

func TestToken_FallbackTTLWhenExpiryMissing(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{AccessToken: "tok-1"}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if want := base.Add(10 * time.Minute); !m.expiresAt.Equal(want) {
		t.Fatalf("expected fallback expiry %v, got %v", want, m.expiresAt)
	}
}

func TestToken_ExpiresInSeconds(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	client := &fakeLoginClient{resp: tradovate.AccessTokenResponse{
		AccessToken: "tok-1",
		ExpiresIn:   4500,
	}}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if want := base.Add(4500 * time.Second); !m.expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, m.expiresAt)
	}
}

func TestToken_LoginErrorDoesNotPoisonCache(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	loginErr := errors.New("boom")
	client := &fakeLoginClient{err: loginErr}

	m := NewManager(client, Options{FallbackTTL: 10 * time.Minute, SafetyMargin: 30 * time.Second}, nil)
	m.now = fixedClock(base)

	if _, err := m.Token(context.Background(), false); !errors.Is(err, loginErr) {
		t.Fatalf("expected login error, got %v", err)
	}
	if m.token != "" {
		t.Fatalf("failed login must not store a token, got %q", m.token)
	}

	client.mu.Lock()
	client.err = nil
	client.resp = tradovate.AccessTokenResponse{AccessToken: "tok-1"}
	client.mu.Unlock()

	tok, err := m.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("unexpected token %q", tok)
	}
}
