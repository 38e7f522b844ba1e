package backup

import (
	"errors"
	"fmt"
)

// DefaultKeepCount matches the backup.keep default in the settings file.
const DefaultKeepCount = 3

// ErrNegativeKeep is returned by Prune for a keep count below zero.
var ErrNegativeKeep = errors.New("keep count must not be negative")

// PruneResult reports the binaries Prune removed.
type PruneResult struct {
	Deleted []BackupInfo `json:"deleted" yaml:"deleted"`
	Kept    int          `json:"kept" yaml:"kept"`
}

// Prune deletes every backup beyond the newest keep. Deletion stops at the
// first failure so the result never claims a binary that is still on disk.
func (m *Manager) Prune(keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeKeep, keep)
	}

	backups, err := m.List()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{Kept: min(keep, len(backups))}
	for _, info := range backups[result.Kept:] {
		if err := m.Delete(info.ID); err != nil {
			return result, fmt.Errorf("delete backup %s: %w", info.ID, err)
		}
		result.Deleted = append(result.Deleted, info)
	}
	return result, nil
}
