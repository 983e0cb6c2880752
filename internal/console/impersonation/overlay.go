package impersonation

import (
	"context"
	"fmt"
	"log"
	"sync"
)

const (
	// ClientRootPath is where a started impersonation lands.
	ClientRootPath = "/"
	// BackofficeRootPath is where a stopped impersonation lands.
	BackofficeRootPath = "/backoffice"
)

// Navigation tells the transport where to go after a scope change. Remount
// means nothing rendered under the previous scope may be reused.
type Navigation struct {
	Location string
	Remount  bool
}

// Invalidator drops data cached under a tenant scope.
type Invalidator interface {
	InvalidateTenantScope(ctx context.Context)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context)

// InvalidateTenantScope calls f.
func (f InvalidatorFunc) InvalidateTenantScope(ctx context.Context) {
	f(ctx)
}

// Option configures an Overlay.
type Option func(*Overlay)

// WithInvalidator registers an invalidator run on every scope change.
func WithInvalidator(inv Invalidator) Option {
	return func(o *Overlay) {
		if inv != nil {
			o.invalidators = append(o.invalidators, inv)
		}
	}
}

// Overlay holds at most one active target.
type Overlay struct {
	store        Store
	invalidators []Invalidator

	mu     sync.RWMutex
	target *Target
}

// NewOverlay builds an overlay over store. Call Initialize before reading.
func NewOverlay(store Store, opts ...Option) *Overlay {
	o := &Overlay{store: store}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize loads the stored target. A payload that does not decode is
// cleared and treated as absent.
func (o *Overlay) Initialize(ctx context.Context) error {
	encoded, ok, err := o.store.LoadTarget(ctx)
	if err != nil {
		return fmt.Errorf("load impersonation target: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = nil
	if !ok || encoded == "" {
		return nil
	}
	target, err := DecodeTarget(encoded)
	if err != nil {
		log.Printf("discarding stored impersonation target err=%v", err)
		if clearErr := o.store.ClearTarget(ctx); clearErr != nil {
			return fmt.Errorf("clear impersonation target: %w", clearErr)
		}
		return nil
	}
	o.target = &target
	return nil
}

// Start makes target the active scope, replacing any previous one.
func (o *Overlay) Start(ctx context.Context, target Target) (Navigation, error) {
	encoded, err := EncodeTarget(target)
	if err != nil {
		return Navigation{}, err
	}

	o.mu.Lock()
	if err := o.store.SaveTarget(ctx, encoded); err != nil {
		o.mu.Unlock()
		return Navigation{}, fmt.Errorf("save impersonation target: %w", err)
	}
	o.target = &target
	o.mu.Unlock()

	o.invalidate(ctx)
	return Navigation{Location: ClientRootPath, Remount: true}, nil
}

// Stop clears the active scope and returns to the backoffice root.
func (o *Overlay) Stop(ctx context.Context) (Navigation, error) {
	if _, err := o.clear(ctx); err != nil {
		return Navigation{}, err
	}
	o.invalidate(ctx)
	return Navigation{Location: BackofficeRootPath, Remount: true}, nil
}

// Clear drops the target without navigating. Used on sign-out and when a
// target is found paired with a non-backoffice principal.
func (o *Overlay) Clear(ctx context.Context) error {
	had, err := o.clear(ctx)
	if err != nil {
		return err
	}
	if had {
		o.invalidate(ctx)
	}
	return nil
}

func (o *Overlay) clear(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.store.ClearTarget(ctx); err != nil {
		return false, fmt.Errorf("clear impersonation target: %w", err)
	}
	had := o.target != nil
	o.target = nil
	return had, nil
}

// Target returns the active target.
func (o *Overlay) Target() (Target, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.target == nil {
		return Target{}, false
	}
	return *o.target, true
}

// IsImpersonating reports whether a target is active.
func (o *Overlay) IsImpersonating() bool {
	_, ok := o.Target()
	return ok
}

// TenantID returns the active target's tenant id, for request dispatch.
func (o *Overlay) TenantID(context.Context) (string, bool) {
	target, ok := o.Target()
	return target.TenantID, ok
}

func (o *Overlay) invalidate(ctx context.Context) {
	for _, inv := range o.invalidators {
		inv.InvalidateTenantScope(ctx)
	}
}
