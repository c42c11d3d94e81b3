// Package snapshot is the reference implementation of the snapshot
// collaborator: a point-in-time copy of a container's backing file,
// staged through the same precompile-then-compile discipline
// pkg/vimg/builder.go uses to assemble a disk image (flush first to
// establish a consistent size, then stream the bytes in one pass).
package snapshot

import (
	"fmt"
	"time"

	"github.com/cartridgeio/cartridge/pkg/cartridge"
)

// Snapshot describes a completed copy.
type Snapshot struct {
	Path        string
	TotalBlocks int64
	TakenAt     time.Time
}

// Manager takes snapshots of open containers.
type Manager struct{}

// New returns a Manager. It carries no state: every Snapshot call is
// independent and safe to run concurrently against different
// containers.
func New() *Manager { return &Manager{} }

// Snapshot flushes c and copies its backing file to destPath.
func (m *Manager) Snapshot(c *cartridge.Cartridge, destPath string) (*Snapshot, error) {
	if c == nil {
		return nil, fmt.Errorf("snapshot: nil container")
	}
	if err := c.ExportTo(destPath); err != nil {
		return nil, err
	}
	return &Snapshot{
		Path:        destPath,
		TotalBlocks: c.TotalBlocks(),
		TakenAt:     time.Now().UTC(),
	}, nil
}
