package update

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// BinaryReplacer swaps the installed binary for a downloaded one with rollback support.
// The new binary is first copied next to the target so the final swap is a
// same-directory rename even when the download lives on another filesystem.
type BinaryReplacer struct {
	currentPath string
	stagedPath  string
	backupPath  string
	verifyArgs  []string
}

// NewBinaryReplacer creates a new binary replacer for the binary at currentPath.
// verifyArgs are passed to the new binary as a smoke test; nil means "--version".
func NewBinaryReplacer(currentPath string, verifyArgs ...string) *BinaryReplacer {
	if len(verifyArgs) == 0 {
		verifyArgs = []string{"--version"}
	}
	return &BinaryReplacer{
		currentPath: currentPath,
		stagedPath:  currentPath + ".new",
		backupPath:  currentPath + ".backup",
		verifyArgs:  verifyArgs,
	}
}

// Replace replaces the current binary with newBinary.
// newBinary itself is left in place; the caller owns its cleanup.
func (r *BinaryReplacer) Replace(newBinary string) error {
	if err := copyFile(newBinary, r.stagedPath, 0o755); err != nil {
		return fmt.Errorf("failed to stage new binary: %w", err)
	}

	if err := os.Rename(r.currentPath, r.backupPath); err != nil {
		_ = os.Remove(r.stagedPath)
		return fmt.Errorf("failed to create backup: %w", err)
	}

	if err := os.Rename(r.stagedPath, r.currentPath); err != nil {
		_ = os.Remove(r.stagedPath)
		if rerr := r.Rollback(); rerr != nil {
			log.Errorf("rollback after failed replace: %v", rerr)
		}
		return fmt.Errorf("failed to replace binary: %w", err)
	}

	if err := r.verifyBinary(r.currentPath); err != nil {
		if rerr := r.Rollback(); rerr != nil {
			log.Errorf("rollback after failed verification: %v", rerr)
		}
		return fmt.Errorf("new binary verification failed: %w", err)
	}

	// A running executable cannot be removed on every platform; a stale backup is harmless.
	if err := os.Remove(r.backupPath); err != nil {
		log.Debugf("leaving backup %s in place: %v", r.backupPath, err)
	}

	return nil
}

// Rollback restores the backup if update fails
func (r *BinaryReplacer) Rollback() error {
	if _, err := os.Stat(r.backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup not found: %s", r.backupPath)
	}

	if err := os.Rename(r.backupPath, r.currentPath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}

	if err := os.Chmod(r.currentPath, 0o755); err != nil {
		return fmt.Errorf("failed to set permissions on restored binary: %w", err)
	}

	return nil
}

// verifyBinary runs the binary with the verification arguments
func (r *BinaryReplacer) verifyBinary(path string) error {
	cmd := exec.Command(path, r.verifyArgs...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("binary verification failed: %w", err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(src), err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dst), err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy to %s: %w", filepath.Base(dst), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Chmod(dst, mode)
}
