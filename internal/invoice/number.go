package invoice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// numberAttempts is how many random numbers are tried before falling back to
// the clock.
const numberAttempts = 10

// NumberChecker reports whether an invoice number is already taken.
type NumberChecker interface {
	NumberExists(ctx context.Context, number string) (bool, error)
}

// NumberGenerator issues invoice numbers of the form #INVYYYYMMDDNNNNNN.
type NumberGenerator struct {
	checker NumberChecker
	now     func() time.Time
	random  func() int
}

// NewNumberGenerator creates a generator that checks uniqueness with checker.
func NewNumberGenerator(checker NumberChecker) *NumberGenerator {
	return &NumberGenerator{
		checker: checker,
		now:     time.Now,
		random:  func() int { return 100000 + rand.IntN(900000) },
	}
}

// WithClock overrides the time source and the six-digit random source.
func (g *NumberGenerator) WithClock(now func() time.Time, random func() int) *NumberGenerator {
	g.now = now
	g.random = random
	return g
}

// Next returns an unused invoice number. After numberAttempts collisions the
// suffix is taken from the last six digits of the Unix millisecond clock.
func (g *NumberGenerator) Next(ctx context.Context) (string, error) {
	now := g.now().UTC()
	prefix := "#INV" + now.Format("20060102")

	for range numberAttempts {
		candidate := fmt.Sprintf("%s%06d", prefix, g.random())
		taken, err := g.checker.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking invoice number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s%06d", prefix, now.UnixMilli()%1_000_000), nil
}
