// Package inject implements InjectionIntake (§4.8, §6.1): HMAC-authenticated,
// rate-limited admission of external Vectors into Stage 2 as candidates.
package inject

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
	"golang.org/x/time/rate"
)

// Sentinel errors callers branch on (§7: "Sentinel errors for conditions
// callers branch on").
var (
	ErrRateLimited   = errors.New("inject: rate limit exceeded")
	ErrBadSignature  = errors.New("inject: HMAC signature mismatch")
	ErrClockSkew     = errors.New("inject: received_at outside allowed skew")
	ErrInvalidVector = errors.New("inject: invalid vector")
	ErrEntropySpike  = errors.New("inject: entropy spike rejected")
	ErrUnknownKey    = errors.New("inject: unknown key_id")
)

// Status is the outcome reported back to the caller (§6.1).
type Status string

const (
	StatusAbsorbed Status = "absorbed"
	StatusRejected Status = "rejected"
)

// Request is one inject() call (§6.1).
type Request struct {
	KeyID      string
	Label      string
	Vector     vector.Vector
	Salience   float64
	ReceivedAt time.Time
	Signature  string // hex HMAC-SHA256 over the canonical message
}

// Result is the response to inject() (§6.1).
type Result struct {
	Status       Status
	ID           string
	EntropyDelta float64
	Reason       string
}

// Record is the immutable audit trail entry (§4.8: "every injection attempt
// is recorded as an immutable InjectionRecord").
type Record struct {
	KeyID      string    `json:"key_id"`
	Label      string    `json:"label"`
	ReceivedAt time.Time `json:"received_at"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	ThoughtID  string    `json:"thought_id,omitempty"`
}

// KeyStore resolves a key_id to its current daily-rotated HMAC secret.
type KeyStore interface {
	Secret(keyID string) ([]byte, bool)
}

// DiversityProber measures the working log's cognitive-diversity score
// before/after a candidate injection, for entropy_delta (§4.8).
type DiversityProber interface {
	DiversityScore() float64
}

// limiterPair is the dual per-second/per-minute rate limiter per key_id,
// grounded on infrastructure/ratelimit/ratelimit.go's RateLimiter in the
// r3e-network-service_layer pack example.
type limiterPair struct {
	perSecond *rate.Limiter
	perMinute *rate.Limiter
}

// Intake implements InjectionIntake.
type Intake struct {
	dim             int
	skewAllowance   time.Duration
	entropySpikeMax float64
	rateSec         float64
	rateMin         float64

	keys KeyStore
	div  DiversityProber
	log  *slog.Logger

	mu       sync.Mutex
	limiters map[string]*limiterPair

	audit *AuditLog

	// onAbsorbed is called with the constructed Thought whenever Inject
	// admits one, so the engine can enqueue it as a Stage 2 candidate
	// without InjectionIntake needing to know about the cycle or its queue.
	onAbsorbed func(*thought.Thought)
}

// Config bundles Intake's tunables from core/config.Config (§6.5).
type Config struct {
	VectorDimension       int
	ClockSkewAllowance    time.Duration
	EntropySpikeThreshold float64
	RatePerSecond         float64
	RatePerMinute         float64
}

// New constructs an Intake. onAbsorbed may be nil; when set, it receives
// every successfully admitted Thought (for enqueuing as a Stage 2
// candidate).
func New(cfg Config, keys KeyStore, div DiversityProber, audit *AuditLog, log *slog.Logger, onAbsorbed func(*thought.Thought)) *Intake {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ClockSkewAllowance <= 0 {
		cfg.ClockSkewAllowance = 5 * time.Second
	}
	return &Intake{
		dim:             cfg.VectorDimension,
		skewAllowance:   cfg.ClockSkewAllowance,
		entropySpikeMax: cfg.EntropySpikeThreshold,
		rateSec:         cfg.RatePerSecond,
		rateMin:         cfg.RatePerMinute,
		keys:            keys,
		div:             div,
		audit:           audit,
		log:             log,
		limiters:        make(map[string]*limiterPair),
		onAbsorbed:      onAbsorbed,
	}
}

func (in *Intake) limiterFor(keyID string) *limiterPair {
	in.mu.Lock()
	defer in.mu.Unlock()
	lp, ok := in.limiters[keyID]
	if !ok {
		lp = &limiterPair{
			perSecond: rate.NewLimiter(rate.Limit(in.rateSec), int(in.rateSec)),
			perMinute: rate.NewLimiter(rate.Limit(in.rateMin)/60, int(in.rateMin)),
		}
		in.limiters[keyID] = lp
	}
	return lp
}

// Inject admits or rejects req per §4.8's ordered checks: auth, rate limit,
// vector validity, entropy spike.
func (in *Intake) Inject(ctx context.Context, req Request) (Result, error) {
	rec := Record{KeyID: req.KeyID, Label: req.Label, ReceivedAt: req.ReceivedAt}

	if err := in.authenticate(req); err != nil {
		rec.Status, rec.Reason = StatusRejected, err.Error()
		in.appendAudit(rec)
		return Result{Status: StatusRejected, Reason: err.Error()}, nil
	}

	lp := in.limiterFor(req.KeyID)
	if !lp.perSecond.Allow() || !lp.perMinute.Allow() {
		rec.Status, rec.Reason = StatusRejected, ErrRateLimited.Error()
		in.appendAudit(rec)
		return Result{Status: StatusRejected, Reason: ErrRateLimited.Error()}, nil
	}

	normalized, err := in.validateVector(req.Vector)
	if err != nil {
		rec.Status, rec.Reason = StatusRejected, err.Error()
		in.appendAudit(rec)
		return Result{Status: StatusRejected, Reason: err.Error()}, nil
	}

	before := 0.0
	if in.div != nil {
		before = in.div.DiversityScore()
	}

	t := thought.New(thought.StageAutoflow, thought.Injected(req.KeyID, req.Label))
	t.Content = normalized
	t.Salience.ValenceSigned = clampSignedToSalienceHint(req.Salience)
	t.Composite = clamp01(req.Salience)

	after := before
	if in.div != nil {
		after = in.div.DiversityScore()
	}
	entropyDelta := after - before

	if in.entropySpikeMax > 0 && entropyDelta > in.entropySpikeMax {
		rec.Status, rec.Reason = StatusRejected, ErrEntropySpike.Error()
		in.appendAudit(rec)
		return Result{Status: StatusRejected, Reason: ErrEntropySpike.Error(), EntropyDelta: entropyDelta}, nil
	}

	rec.Status, rec.ThoughtID = StatusAbsorbed, t.ID
	in.appendAudit(rec)
	if in.onAbsorbed != nil {
		in.onAbsorbed(t)
	}

	return Result{Status: StatusAbsorbed, ID: t.ID, EntropyDelta: entropyDelta}, nil
}

func (in *Intake) authenticate(req Request) error {
	if req.ReceivedAt.IsZero() {
		return fmt.Errorf("%w: missing received_at", ErrClockSkew)
	}
	if skew := time.Since(req.ReceivedAt); skew > in.skewAllowance || skew < -in.skewAllowance {
		return fmt.Errorf("%w: %s", ErrClockSkew, skew)
	}

	secret, ok := in.keys.Secret(req.KeyID)
	if !ok {
		return ErrUnknownKey
	}

	expected := Sign(secret, req.ReceivedAt, req.Label, req.Vector)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the canonical HMAC-SHA256 signature over
// (received_at, label, vector_hash) per §6.1.
func Sign(secret []byte, receivedAt time.Time, label string, v vector.Vector) string {
	vh := sha256.Sum256(vectorBytes(v))
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d:%s:%s", receivedAt.UnixNano(), label, hex.EncodeToString(vh[:]))
	return hex.EncodeToString(mac.Sum(nil))
}

func vectorBytes(v vector.Vector) []byte {
	b := make([]byte, 0, len(v)*8)
	for _, x := range v {
		bits := uint64(x * 1e9) // stable-enough quantization for hashing, not storage
		for i := 0; i < 8; i++ {
			b = append(b, byte(bits>>(8*i)))
		}
	}
	return b
}

func (in *Intake) validateVector(v vector.Vector) (vector.Vector, error) {
	if err := vector.Validate(v, in.dim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVector, err)
	}
	if v.IsZero() {
		return nil, fmt.Errorf("%w: zero vector has undefined cosine distance", ErrInvalidVector)
	}
	return v.Normalize(), nil
}

func (in *Intake) appendAudit(rec Record) {
	if in.audit == nil {
		return
	}
	if err := in.audit.Append(rec); err != nil {
		in.log.Error("failed to append injection audit record", "key_id", rec.KeyID, "error", err)
	}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// clampSignedToSalienceHint maps a declared [0,1] salience onto
// ValenceSigned's [-1,1] domain at face value so an injected Thought's
// declared salience participates in composite the same way internal
// candidates' signed valence does (§4.3: "Injected ... compete on their
// declared salience exactly as internal thoughts do").
func clampSignedToSalienceHint(declared float64) float64 {
	return 2*clamp01(declared) - 1
}
