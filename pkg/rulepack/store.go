package rulepack

import (
	"context"
	"errors"
	"time"
)

// Store persists rule packs by identifier. Implementations must be safe for
// concurrent use and must return copies that callers may modify freely.
type Store interface {
	// Get returns the pack with the given ID, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*RulePack, error)

	// Put inserts or replaces a pack by ID.
	Put(ctx context.Context, p *RulePack) error

	// List returns every pack ordered by ID.
	List(ctx context.Context) ([]*RulePack, error)

	// Delete removes a pack. Deleting a missing pack returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Activator is implemented by stores that can switch the active pack
// atomically.
type Activator interface {
	Activate(ctx context.Context, id string, at time.Time) error
}

// Active returns the first pack, in ID order, whose IsActive flag is set.
func Active(ctx context.Context, s Store) (*RulePack, error) {
	packs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range packs {
		if p.IsActive {
			return p, nil
		}
	}
	return nil, ErrNoActivePack
}

// Activate makes id the only active pack in s. Packs whose flag changes get
// UpdatedAt set to at.
func Activate(ctx context.Context, s Store, id string, at time.Time) error {
	if a, ok := s.(Activator); ok {
		return a.Activate(ctx, id, at)
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	packs, err := s.List(ctx)
	if err != nil {
		return err
	}

	// Target first: a failed Put must not leave the store with no active pack.
	for _, p := range packs {
		if p.ID == id && !p.IsActive {
			p.IsActive = true
			p.UpdatedAt = at
			if err := s.Put(ctx, p); err != nil {
				return err
			}
		}
	}
	for _, p := range packs {
		if p.ID != id && p.IsActive {
			p.IsActive = false
			p.UpdatedAt = at
			if err := s.Put(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// Import validates p and stores it, keeping the original CreatedAt of an
// existing pack with the same ID.
func Import(ctx context.Context, s Store, p *RulePack, at time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}

	stored := p.Clone()
	existing, err := s.Get(ctx, p.ID)
	switch {
	case err == nil:
		stored.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound):
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = at
		}
	default:
		return err
	}
	stored.UpdatedAt = at
	return s.Put(ctx, stored)
}
