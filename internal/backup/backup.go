// Package backup keeps copies of replaced binaries so an install can be undone.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Backup describes one saved binary.
type Backup struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
	Version   string    `json:"version" yaml:"version"`
	Target    string    `json:"target" yaml:"target"`
}

// BackupInfo provides summary information about a backup for listing.
type BackupInfo struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Version   string    `json:"version" yaml:"version"`
	Note      string    `json:"note,omitempty" yaml:"note,omitempty"`
	Size      int64     `json:"size" yaml:"size"`
}

// Manager handles backup operations.
type Manager struct {
	backupDir string
	now       func() time.Time
}

// NewManager creates a backup manager in the user cache directory.
func NewManager() (*Manager, error) {
	backupDir, err := getBackupDir()
	if err != nil {
		return nil, err
	}
	return NewManagerWithDir(backupDir), nil
}

// NewManagerWithDir creates a backup manager with a custom directory.
func NewManagerWithDir(backupDir string) *Manager {
	return &Manager{backupDir: backupDir, now: time.Now}
}

// getBackupDir returns the default backup directory path.
func getBackupDir() (string, error) {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "upkeep", "backups"), nil
}

// Create copies the binary at target, installed at version, into the backup directory.
func (m *Manager) Create(target, version, note string) (*Backup, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := m.now()
	id := m.uniqueID(now.Format("2006-01-02-150405"))

	backup := &Backup{
		ID:        id,
		CreatedAt: now,
		Note:      note,
		Version:   version,
		Target:    target,
	}

	if err := copyBinary(target, m.BinaryPath(id)); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		_ = os.Remove(m.BinaryPath(id))
		return nil, fmt.Errorf("failed to marshal backup: %w", err)
	}
	if err := os.WriteFile(m.metadataPath(id), data, 0o644); err != nil {
		_ = os.Remove(m.BinaryPath(id))
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	return backup, nil
}

// uniqueID suffixes base until no backup uses it.
func (m *Manager) uniqueID(base string) string {
	id := base
	for n := 2; ; n++ {
		if _, err := os.Stat(m.metadataPath(id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// List returns all backups sorted by creation time (newest first).
func (m *Manager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		backup, err := m.loadBackup(filepath.Join(m.backupDir, entry.Name()))
		if err != nil {
			continue
		}

		var size int64
		if info, err := os.Stat(m.BinaryPath(backup.ID)); err == nil {
			size = info.Size()
		}

		backups = append(backups, BackupInfo{
			ID:        backup.ID,
			CreatedAt: backup.CreatedAt,
			Version:   backup.Version,
			Note:      backup.Note,
			Size:      size,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get retrieves a backup by ID. Use "latest" to get the most recent backup.
func (m *Manager) Get(id string) (*Backup, error) {
	if id == "latest" {
		backups, err := m.List()
		if err != nil {
			return nil, err
		}
		if len(backups) == 0 {
			return nil, fmt.Errorf("no backups found")
		}
		id = backups[0].ID
	}

	return m.loadBackup(m.metadataPath(id))
}

// Delete removes a backup by ID.
func (m *Manager) Delete(id string) error {
	path := m.metadataPath(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", id)
	}

	if err := os.Remove(m.BinaryPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup binary: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

// loadBackup reads and parses a backup metadata file.
func (m *Manager) loadBackup(path string) (*Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backup not found: %s", filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("failed to parse backup file: %w", err)
	}
	return &backup, nil
}

// BinaryPath returns where the binary of backup id is stored.
func (m *Manager) BinaryPath(id string) string {
	return filepath.Join(m.backupDir, id+".bin")
}

func (m *Manager) metadataPath(id string) string {
	return filepath.Join(m.backupDir, id+".json")
}

// BackupDir returns the backup directory path.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

func copyBinary(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open binary: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create backup binary: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy binary: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close backup binary: %w", err)
	}
	return nil
}
