package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrDiscountAlreadyApplied is the session-gate rejection: one accepted
// discount per checkout session, no stacking and no swapping, because the
// backend does not reconcile a replaced discount.
var ErrDiscountAlreadyApplied = errors.New("a discount has already been applied to this session")

// DiscountGuard is the one-shot discount gate for a single checkout
// session. Validation itself is delegated; the guard owns only the gate
// and the normalization of the submitted code.
type DiscountGuard struct {
	mu        sync.Mutex
	validator DiscountValidator
	applied   *AppliedDiscount
}

func NewDiscountGuard(validator DiscountValidator) *DiscountGuard {
	return &DiscountGuard{validator: validator}
}

// Apply validates code and, on success, records it and closes the gate.
// Once a discount has been accepted, every further Apply fails with
// ErrDiscountAlreadyApplied regardless of the code submitted.
func (g *DiscountGuard) Apply(ctx context.Context, code, planID, userID string) (*AppliedDiscount, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, fmt.Errorf("discount code is required")
	}

	g.mu.Lock()
	if g.applied != nil {
		g.mu.Unlock()
		return nil, ErrDiscountAlreadyApplied
	}
	g.mu.Unlock()

	discount, err := g.validator.ValidateDiscountCode(ctx, normalized, planID, userID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.applied != nil {
		// Another apply won while we were validating.
		return nil, ErrDiscountAlreadyApplied
	}
	g.applied = discount
	return discount, nil
}

// Remove clears the accepted discount and reopens the gate.
func (g *DiscountGuard) Remove() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applied = nil
}

// Applied returns the accepted discount, or nil.
func (g *DiscountGuard) Applied() *AppliedDiscount {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.applied
}
