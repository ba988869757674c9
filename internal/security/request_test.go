package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type signedRequest struct {
	req  *http.Request
	body []byte
}

func TestSignVerifyRequest(t *testing.T) {
	kp, _ := GenerateKeypair()
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"name":"build"}`)

	req := httptest.NewRequest("POST", "/v1/tasks", strings.NewReader(string(body)))
	SignRequest(req, kp, body, now)

	p, err := VerifyRequest(req, body, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("VerifyRequest() error: %v", err)
	}
	if p != kp.Principal() {
		t.Errorf("principal = %s, want %s", p, kp.Principal())
	}
}

func TestVerifyRequest_Rejects(t *testing.T) {
	kp, _ := GenerateKeypair()
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"amount":75}`)

	tests := []struct {
		name   string
		mutate func(r *signedRequest)
		at     time.Time
	}{
		{"tampered body", func(r *signedRequest) { r.body = []byte(`{"amount":76}`) }, now},
		{"different path", func(r *signedRequest) { r.req.URL.Path = "/v1/era" }, now},
		{"stale timestamp", func(r *signedRequest) {}, now.Add(MaxClockSkew + time.Second)},
		{"bad signature hex", func(r *signedRequest) { r.req.Header.Set(HeaderSignature, "zz") }, now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &signedRequest{req: httptest.NewRequest("POST", "/v1/tasks/build/fund", nil), body: body}
			SignRequest(r.req, kp, body, now)
			tt.mutate(r)
			if _, err := VerifyRequest(r.req, r.body, tt.at); !errors.Is(err, ErrBadSignature) {
				t.Errorf("VerifyRequest() error = %v, want ErrBadSignature", err)
			}
		})
	}
}

func TestVerifyRequest_UnsignedPrincipal(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/members", nil)
	req.Header.Set(HeaderPrincipal, "alice")
	if _, err := VerifyRequest(req, nil, time.Now()); err == nil {
		t.Error("VerifyRequest() should reject a non-key principal")
	}
}

func TestVerifyRequest_MissingNonce(t *testing.T) {
	kp, _ := GenerateKeypair()
	now := time.Unix(1_700_000_000, 0)
	req := httptest.NewRequest("POST", "/v1/era", nil)
	SignRequest(req, kp, nil, now)
	req.Header.Del(HeaderNonce)
	if _, err := VerifyRequest(req, nil, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("VerifyRequest() error = %v, want ErrBadSignature", err)
	}
}

func TestVerifyRequest_NonceIsSigned(t *testing.T) {
	kp, _ := GenerateKeypair()
	now := time.Unix(1_700_000_000, 0)
	req := httptest.NewRequest("POST", "/v1/era", nil)
	SignRequest(req, kp, nil, now)
	req.Header.Set(HeaderNonce, "another-nonce")
	if _, err := VerifyRequest(req, nil, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("VerifyRequest() error = %v, want ErrBadSignature", err)
	}
}

func TestReplayGuard_RejectsRepeat(t *testing.T) {
	kp, _ := GenerateKeypair()
	g := NewReplayGuard(0)
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"amount":10}`)

	req := httptest.NewRequest("POST", "/v1/tasks/build/fund", nil)
	SignRequest(req, kp, body, now)
	if _, err := g.Verify(req, body, now); err != nil {
		t.Fatalf("Verify() first error: %v", err)
	}
	if _, err := g.Verify(req, body, now.Add(time.Second)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() replay error = %v, want ErrBadSignature", err)
	}

	fresh := httptest.NewRequest("POST", "/v1/tasks/build/fund", nil)
	SignRequest(fresh, kp, body, now)
	if _, err := g.Verify(fresh, body, now.Add(time.Second)); err != nil {
		t.Errorf("Verify() fresh nonce error: %v", err)
	}
}

func TestReplayGuard_Capacity(t *testing.T) {
	kp, _ := GenerateKeypair()
	g := NewReplayGuard(2)
	now := time.Unix(1_700_000_000, 0)

	sign := func(at time.Time) *http.Request {
		req := httptest.NewRequest("POST", "/v1/era", nil)
		SignRequest(req, kp, nil, at)
		return req
	}
	for i := 0; i < 2; i++ {
		if _, err := g.Verify(sign(now), nil, now); err != nil {
			t.Fatalf("Verify() #%d error: %v", i, err)
		}
	}
	if _, err := g.Verify(sign(now), nil, now); !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() over capacity error = %v, want ErrBadSignature", err)
	}

	// Once the window passes the old nonces are pruned.
	later := now.Add(MaxClockSkew + time.Second)
	if _, err := g.Verify(sign(later), nil, later); err != nil {
		t.Errorf("Verify() after expiry error: %v", err)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}
