package data

import (
	"errors"
	"sync"

	"gorm.io/gorm"
)

// ErrStoreUnavailable is returned while the underlying store handle is
// being replaced (backup restore). Operations must fail loudly rather than
// run against a stale handle.
var ErrStoreUnavailable = errors.New("data: store is not available")

// Provider owns the live gorm handle. Every engine obtains the handle per
// call through DB so that Replace can atomically swap it underneath them.
type Provider struct {
	mu sync.RWMutex
	db *gorm.DB
}

func NewProvider(db *gorm.DB) *Provider {
	return &Provider{db: db}
}

func (p *Provider) DB() (*gorm.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return nil, ErrStoreUnavailable
	}
	return p.db, nil
}

// Close detaches the current handle. Until Replace is called, DB returns
// ErrStoreUnavailable.
func (p *Provider) Close() {
	p.mu.Lock()
	p.db = nil
	p.mu.Unlock()
}

// Replace installs a freshly opened handle.
func (p *Provider) Replace(db *gorm.DB) {
	p.mu.Lock()
	p.db = db
	p.mu.Unlock()
}
