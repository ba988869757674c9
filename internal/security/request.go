package security

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/pobal-network/pobal/internal/domain"
)

// Request headers carrying the caller identity.
const (
	HeaderPrincipal = "X-Pobal-Principal"
	HeaderTimestamp = "X-Pobal-Timestamp"
	HeaderSignature = "X-Pobal-Signature"
	HeaderNonce     = "X-Pobal-Nonce"
)

// MaxClockSkew bounds how far a signed timestamp may drift from the server clock.
const MaxClockSkew = 5 * time.Minute

// ErrBadSignature is returned when a request signature is missing or invalid.
var ErrBadSignature = errors.New("invalid request signature")

// signingPayload binds method, path, timestamp, nonce and body digest together.
func signingPayload(method, path string, ts int64, nonce string, body []byte) []byte {
	digest := blake2b.Sum256(body)
	return []byte(fmt.Sprintf("%s\n%s\n%d\n%s\n%s", method, path, ts, nonce, hex.EncodeToString(digest[:])))
}

// SignRequest sets the identity headers on req for the given body.
// Every call draws a fresh nonce.
func SignRequest(req *http.Request, kp *Keypair, body []byte, now time.Time) {
	ts := now.Unix()
	nonce := uuid.New().String()
	sig := kp.Sign(signingPayload(req.Method, req.URL.Path, ts, nonce, body))
	req.Header.Set(HeaderPrincipal, kp.PublicKeyHex())
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, hex.EncodeToString(sig))
}

// VerifyRequest checks the identity headers of req against body and
// returns the authenticated principal. It does not detect replays; servers
// use a ReplayGuard for that.
func VerifyRequest(req *http.Request, body []byte, now time.Time) (domain.Principal, error) {
	p := domain.Principal(req.Header.Get(HeaderPrincipal))
	pub, err := PublicKeyOf(p)
	if err != nil {
		return "", err
	}

	ts, err := strconv.ParseInt(req.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad timestamp", ErrBadSignature)
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew > MaxClockSkew || skew < -MaxClockSkew {
		return "", fmt.Errorf("%w: timestamp outside %s window", ErrBadSignature, MaxClockSkew)
	}

	nonce := req.Header.Get(HeaderNonce)
	if nonce == "" {
		return "", fmt.Errorf("%w: missing nonce", ErrBadSignature)
	}

	sig, err := hex.DecodeString(req.Header.Get(HeaderSignature))
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding", ErrBadSignature)
	}
	if !Verify(signingPayload(req.Method, req.URL.Path, ts, nonce, body), sig, pub) {
		return "", ErrBadSignature
	}
	return p, nil
}

// ─── Replay Protection ──────────────────────────────────────────────────────

// DefaultReplayCapacity bounds the nonces a ReplayGuard remembers.
const DefaultReplayCapacity = 100_000

// ReplayGuard verifies signed requests and rejects any principal/nonce pair
// it has already accepted. A nonce is remembered until its timestamp falls
// outside MaxClockSkew, after which VerifyRequest rejects it anyway.
type ReplayGuard struct {
	mu       deadlock.Mutex
	capacity int
	seen     map[string]time.Time // key -> expiry
}

// NewReplayGuard creates a guard holding at most capacity live nonces.
func NewReplayGuard(capacity int) *ReplayGuard {
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &ReplayGuard{capacity: capacity, seen: make(map[string]time.Time)}
}

// Verify runs VerifyRequest and records the nonce. A repeated nonce, or a
// full cache of live nonces, fails with ErrBadSignature.
func (g *ReplayGuard) Verify(req *http.Request, body []byte, now time.Time) (domain.Principal, error) {
	p, err := VerifyRequest(req, body, now)
	if err != nil {
		return "", err
	}
	ts, _ := strconv.ParseInt(req.Header.Get(HeaderTimestamp), 10, 64)
	key := string(p) + "/" + req.Header.Get(HeaderNonce)

	g.mu.Lock()
	defer g.mu.Unlock()
	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return "", fmt.Errorf("%w: nonce already used", ErrBadSignature)
	}
	if len(g.seen) >= g.capacity {
		g.pruneLocked(now)
		if len(g.seen) >= g.capacity {
			return "", fmt.Errorf("%w: too many requests in flight window", ErrBadSignature)
		}
	}
	g.seen[key] = time.Unix(ts, 0).Add(MaxClockSkew)
	return p, nil
}

// Len returns the number of remembered nonces.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *ReplayGuard) pruneLocked(now time.Time) {
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
}
