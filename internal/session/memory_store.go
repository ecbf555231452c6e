package session

import (
	"context"
	"sort"
	"sync"

	"github.com/onairos/onairos-go/pkg/api"
)

// InMemoryStore is a goroutine-safe Store backed by maps. It is the default
// in test mode and for hosts that do not want on-device persistence.
type InMemoryStore struct {
	mu          sync.RWMutex
	creds       Credentials
	hasCreds    bool
	connections map[api.Platform]api.PlatformConnection
	pin         string
	hasPIN      bool
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		connections: make(map[api.Platform]api.PlatformConnection),
	}
}

var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) Credentials(ctx context.Context) (Credentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.hasCreds, nil
}

func (s *InMemoryStore) SaveCredentials(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.hasCreds = true
	return nil
}

func (s *InMemoryStore) ClearCredentials(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.hasCreds = false
	return nil
}

func (s *InMemoryStore) Connections(ctx context.Context) ([]api.PlatformConnection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.PlatformConnection, 0, len(s.connections))
	for _, conn := range s.connections {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *InMemoryStore) Connect(ctx context.Context, conn api.PlatformConnection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn.Platform] = conn
	return nil
}

func (s *InMemoryStore) Disconnect(ctx context.Context, platform api.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, platform)
	return nil
}

func (s *InMemoryStore) StorePIN(ctx context.Context, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
	s.hasPIN = true
	return nil
}

func (s *InMemoryStore) LoadPIN(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pin, s.hasPIN, nil
}

func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.hasCreds = false
	s.connections = make(map[api.Platform]api.PlatformConnection)
	s.pin = ""
	s.hasPIN = false
	return nil
}
