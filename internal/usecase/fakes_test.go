package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
)

var errNetwork = errors.New("connection reset by peer")

// memStore is an in-memory bucket that can be told to fail specific keys.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]bool
	// failTimes makes the first n Put calls fail.
	failTimes int
	block     bool

	calls    atomic.Int32
	inFlight atomic.Int32
	maxPar   atomic.Int32
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failKeys: map[string]bool{}}
}

func (m *memStore) Name() string { return "memory" }

func (m *memStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	n := m.calls.Add(1)

	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxPar.Load()
		if cur <= prev || m.maxPar.CompareAndSwap(prev, cur) {
			break
		}
	}

	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failKeys[key] || int(n) <= m.failTimes {
		return "", errNetwork
	}
	m.objects[key] = append([]byte(nil), data...)
	return "mem://" + key, nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}
