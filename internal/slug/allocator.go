package slug

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultMaxAttempts bounds how many candidates Allocate tries.
	DefaultMaxAttempts = 50

	// DefaultMaxLength matches the VARCHAR(255) slug columns.
	DefaultMaxLength = 255
)

var (
	// ErrTaken is returned by a ClaimFunc when the candidate is already in
	// use. It asks the allocator for another candidate.
	ErrTaken = errors.New("slug taken")

	// ErrExhausted is returned when every candidate was taken.
	ErrExhausted = errors.New("slug candidates exhausted")
)

// ClaimFunc tries to take ownership of a candidate slug, typically by
// inserting the row that carries it. The database unique constraint is the
// final authority: a violation must be reported as ErrTaken (wrapped or not).
type ClaimFunc func(ctx context.Context, candidate string) error

// Allocator hands out slugs derived from a title, adding a random suffix
// when the bare slug is taken.
type Allocator struct {
	maxAttempts int
	maxLength   int
	suffix      func() string
	onCollision func()
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSuffix replaces the random suffix source. Tests use it to force
// collisions.
func WithSuffix(fn func() string) Option {
	return func(a *Allocator) { a.suffix = fn }
}

// WithMaxLength caps the length of every candidate, suffix included.
func WithMaxLength(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxLength = n
		}
	}
}

// WithCollisionHook registers a callback run for every taken candidate.
func WithCollisionHook(fn func()) Option {
	return func(a *Allocator) { a.onCollision = fn }
}

// NewAllocator returns an Allocator trying at most maxAttempts candidates.
// A non-positive maxAttempts falls back to DefaultMaxAttempts.
func NewAllocator(maxAttempts int, opts ...Option) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	a := &Allocator{
		maxAttempts: maxAttempts,
		maxLength:   DefaultMaxLength,
		suffix:      Suffix,
		onCollision: func() {},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Suffix returns 8 random lowercase hex characters.
func Suffix() string {
	return uuid.NewString()[:8]
}

// Allocate derives a slug from text and claims it. The first candidate is
// the bare slug; later candidates append "-" and a random suffix to it.
// Candidates never exceed the allocator's maximum length: the slug part is
// shortened to make room for the suffix.
// It returns the claimed slug, ErrExhausted when every attempt collided, or
// the first non-collision error returned by claim.
func (a *Allocator) Allocate(ctx context.Context, text string, claim ClaimFunc) (string, error) {
	base := Generate(text)
	attempt := 0
	var claimed string

	backoff := retry.WithMaxRetries(uint64(a.maxAttempts-1), retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := a.candidate(base, attempt)
		attempt++

		err := claim(ctx, candidate)
		if err == nil {
			claimed = candidate
			return nil
		}
		if errors.Is(err, ErrTaken) {
			a.onCollision()
			slog.Debug("slug taken, retrying", "candidate", candidate, "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, ErrTaken) {
		return "", fmt.Errorf("%w: %q after %d attempts", ErrExhausted, base, attempt)
	}
	if err != nil {
		return "", err
	}
	return claimed, nil
}

func (a *Allocator) candidate(base string, attempt int) string {
	if attempt == 0 && base != "" {
		return Truncate(base, a.maxLength)
	}
	suffix := Truncate(a.suffix(), a.maxLength)
	base = Truncate(base, a.maxLength-len(suffix)-1)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
