package auth

import (
	"sync"
	"time"

	"github.com/frahmantamala/hrm-access/internal/metrics"
)

// RevocationList remembers logged-out token ids until they expire.
type RevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *RevocationList) Revoke(id string, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[id] = expiresAt
	l.pruneLocked()
}

func (l *RevocationList) IsRevoked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[id]
	return ok
}

func (l *RevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.revoked)
}

func (l *RevocationList) pruneLocked() {
	now := l.now()
	for id, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, id)
		}
	}
	metrics.RevokedTokens.Set(float64(len(l.revoked)))
}
