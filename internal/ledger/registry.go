package ledger

import (
	"sort"
	"sync"

	"github.com/safedeal/backend/internal/bank"
)

// Registry holds one ledger per tenant. The source system keyed its singleton
// ledger by deployment address; here the key is an explicit tenant identifier
// injected by the caller.
type Registry struct {
	bank  bank.Bank
	nowFn func() uint64

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

func NewRegistry(b bank.Bank, nowFn func() uint64) *Registry {
	return &Registry{
		bank:    b,
		nowFn:   nowFn,
		ledgers: make(map[string]*Ledger),
	}
}

// Initialize returns the tenant's ledger, creating an empty one on first call.
// Repeat calls are no-ops and never reset existing state.
func (r *Registry) Initialize(tenant string) *Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.ledgers[tenant]; ok {
		return l
	}
	l := New(tenant, r.bank, r.nowFn)
	r.ledgers[tenant] = l
	return l
}

// Get returns the tenant's ledger or ErrNotInitialized.
func (r *Registry) Get(tenant string) (*Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.ledgers[tenant]
	if !ok {
		return nil, ErrNotInitialized
	}
	return l, nil
}

// Tenants returns the initialized tenant keys, sorted for stable iteration.
func (r *Registry) Tenants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.ledgers))
	for t := range r.ledgers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
