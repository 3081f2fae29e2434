// Package storage persists the permission store as one JSON snapshot
// document. The document is written in full after every mutation and read in
// full at startup; losing at most the last mutation on a crash is accepted.
package storage

import (
	"github.com/lakegrant/lakegrant/pkg/store"
)

// Store persists whole-state snapshots.
type Store interface {
	// Load reads the last saved snapshot. The second return is false when
	// nothing has been saved yet.
	Load() (store.State, bool, error)
	// Save replaces the saved snapshot.
	Save(state store.State) error
	Close() error
}
