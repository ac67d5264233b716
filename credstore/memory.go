package credstore

import (
	"sync"
)

var (
	_ Store   = &MemoryStore{}
	_ Watcher = &MemoryStore{}
)

// MemoryStore is an in-process Store. It is safe for concurrent use and
// publishes a mutation event for every write, delete, and clear so
// subscribers can re-evaluate their gates.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Key][]byte

	notifier Notifier
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[Key][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (m *MemoryStore) Get(key Key) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(v))
	copy(cp, v)

	return cp, true
}

// Set replaces the value stored under key.
func (m *MemoryStore) Set(key Key, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)

	m.mu.Lock()
	m.values[key] = cp
	m.mu.Unlock()

	m.notifier.publish(key)
}

// Delete removes key. Deleting an absent key is a no-op and is not
// published.
func (m *MemoryStore) Delete(key Key) {
	m.mu.Lock()
	_, ok := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()

	if ok {
		m.notifier.publish(key)
	}
}

// Clear removes every cached entity. Subscribers receive a single event
// for each key that was present.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	keys := make([]Key, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	m.values = make(map[Key][]byte)
	m.mu.Unlock()

	for _, k := range keys {
		m.notifier.publish(k)
	}
}

// Subscribe registers for mutation events. The returned cancel func must
// be called to release the subscription.
func (m *MemoryStore) Subscribe() (<-chan Key, func()) {
	return m.notifier.Subscribe()
}

// Notifier fans mutation events out to subscribers. Delivery is
// best-effort: events to a subscriber with a full channel are dropped
// rather than blocking the writer.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Key
	next int
}

// Subscribe registers a new subscriber.
func (n *Notifier) Subscribe() (<-chan Key, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan Key)
	}
	id := n.next
	n.next++
	ch := make(chan Key, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

func (n *Notifier) publish(key Key) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- key:
		default:
		}
	}
}
