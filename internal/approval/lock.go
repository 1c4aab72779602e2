package approval

import "sync"

// LockTable holds one guard per expense id while an action on it is in flight.
type LockTable struct {
	mu   sync.Mutex
	held map[int64]*Guard
}

// Guard is the in-flight marker for one id. Release is idempotent.
type Guard struct {
	id    int64
	table *LockTable
	once  sync.Once
}

func NewLockTable() *LockTable {
	return &LockTable{held: make(map[int64]*Guard)}
}

// Acquire returns a guard for id, or false if one is already held.
func (t *LockTable) Acquire(id int64) (*Guard, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.held[id]; busy {
		return nil, false
	}
	g := &Guard{id: id, table: t}
	t.held[id] = g
	return g, true
}

func (t *LockTable) Held(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[id]
	return ok
}

func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.held)
}

func (g *Guard) Release() {
	g.once.Do(func() {
		g.table.mu.Lock()
		defer g.table.mu.Unlock()
		if g.table.held[g.id] == g {
			delete(g.table.held, g.id)
		}
	})
}
