package ratelimit

import "sync"

// Coordinator hands out the Limiter enforcing a named logical rate budget.
// Two callers asking for the same budget name must receive views onto the
// same underlying budget.
//
// Coordination across independent OS processes is deliberately out of scope:
// no shared-memory, lock-file, or broker mechanism has been designed, so the
// only implementation is ProcessLocal and every process enforces its own
// budget. A client pool that must share one budget can do so today by
// sharing a single process.
type Coordinator interface {
	// Budget returns the limiter for the named budget, creating it on first
	// use. The error comes from the limiter factory.
	Budget(name string) (Limiter, error)
}

// ProcessLocal implements Coordinator within a single process: independent
// clients asking for the same budget name share one limiter, and nothing is
// shared beyond the process boundary.
type ProcessLocal struct {
	factory func(name string) (Limiter, error)
	budgets map[string]Limiter
	mu      sync.Mutex
}

var _ Coordinator = (*ProcessLocal)(nil)

// NewProcessLocal creates a process-local coordinator. The factory is called
// once per budget name to build its limiter.
func NewProcessLocal(factory func(name string) (Limiter, error)) *ProcessLocal {
	return &ProcessLocal{
		factory: factory,
		budgets: make(map[string]Limiter),
	}
}

// Budget returns the limiter for the named budget, creating it on first use.
func (c *ProcessLocal) Budget(name string) (Limiter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.budgets[name]; ok {
		return l, nil
	}
	l, err := c.factory(name)
	if err != nil {
		return nil, err
	}
	c.budgets[name] = l
	return l, nil
}
