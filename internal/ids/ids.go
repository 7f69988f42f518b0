// Package ids abstracts id generation so services can take a deterministic
// generator in tests and UUIDs in production.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique string ids.
type Generator interface {
	New() string
}

// UUID generates random UUIDv4 ids.
type UUID struct{}

func (UUID) New() string {
	return uuid.New().String()
}

// Sequence generates "prefix-1", "prefix-2", ... for deterministic tests.
type Sequence struct {
	Prefix string
	n      atomic.Int64
}

func (s *Sequence) New() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}
