package notify

import (
	"context"
	"sync"
	"time"

	"polyarb/internal/domain"
)

// MemoryCooldown is an in-process domain.Cooldown used when Redis is not
// configured. Windows do not survive restarts.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryCooldown creates an empty in-memory cooldown gate.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Allow reports whether the key is outside its cooldown window, starting a
// new window when it is.
func (m *MemoryCooldown) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if deadline, ok := m.until[key]; ok && now.Before(deadline) {
		return false, nil
	}
	m.until[key] = now.Add(ttl)
	return true, nil
}

// Compile-time interface check.
var _ domain.Cooldown = (*MemoryCooldown)(nil)
