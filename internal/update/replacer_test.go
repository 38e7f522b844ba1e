package update

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const okScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "upkeep version %s"
	exit 0
fi
exit 1
`

func sprintfScript(version string) string {
	return fmt.Sprintf(okScript, version)
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

func TestNewBinaryReplacer(t *testing.T) {
	replacer := NewBinaryReplacer("/usr/local/bin/upkeep")

	if replacer.currentPath != "/usr/local/bin/upkeep" {
		t.Errorf("currentPath = %s, want /usr/local/bin/upkeep", replacer.currentPath)
	}
	if replacer.backupPath != "/usr/local/bin/upkeep.backup" {
		t.Errorf("backupPath = %s", replacer.backupPath)
	}
	if replacer.stagedPath != "/usr/local/bin/upkeep.new" {
		t.Errorf("stagedPath = %s", replacer.stagedPath)
	}
	if len(replacer.verifyArgs) != 1 || replacer.verifyArgs[0] != "--version" {
		t.Errorf("verifyArgs = %v, want [--version]", replacer.verifyArgs)
	}

	custom := NewBinaryReplacer("/opt/app", "version", "--short")
	if len(custom.verifyArgs) != 2 {
		t.Errorf("custom verifyArgs = %v", custom.verifyArgs)
	}
}

func TestRollback_Success(t *testing.T) {
	tmpDir := t.TempDir()
	currentBinary := filepath.Join(tmpDir, "upkeep")
	originalContent := []byte("#!/bin/sh\necho test version 1.0.0\n")

	replacer := NewBinaryReplacer(currentBinary)
	if err := os.WriteFile(replacer.backupPath, originalContent, 0o644); err != nil {
		t.Fatalf("Failed to write backup: %v", err)
	}
	if err := os.WriteFile(currentBinary, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("Failed to write bad binary: %v", err)
	}

	if err := replacer.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	restored, err := os.ReadFile(currentBinary)
	if err != nil {
		t.Fatalf("Failed to read restored binary: %v", err)
	}
	if string(restored) != string(originalContent) {
		t.Errorf("Restored content mismatch")
	}
	if _, err := os.Stat(replacer.backupPath); !os.IsNotExist(err) {
		t.Error("Backup should not exist after rollback")
	}
}

func TestRollback_NoBackup(t *testing.T) {
	replacer := NewBinaryReplacer(filepath.Join(t.TempDir(), "upkeep"))

	if err := replacer.Rollback(); err == nil {
		t.Error("Expected error when backup doesn't exist")
	}
}

func TestReplace_Success(t *testing.T) {
	skipWithoutShell(t)

	tmpDir := t.TempDir()
	currentBinary := filepath.Join(tmpDir, "upkeep")
	newBinary := filepath.Join(t.TempDir(), "upkeep-linux-amd64")

	writeScript(t, currentBinary, sprintfScript("2.2.0"))
	newScript := sprintfScript("2.3.0")
	writeScript(t, newBinary, newScript)

	replacer := NewBinaryReplacer(currentBinary)
	if err := replacer.Replace(newBinary); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	content, err := os.ReadFile(currentBinary)
	if err != nil {
		t.Fatalf("Failed to read replaced binary: %v", err)
	}
	if string(content) != newScript {
		t.Error("Binary was not replaced")
	}

	for _, leftover := range []string{replacer.backupPath, replacer.stagedPath} {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Errorf("%s should be removed after successful replacement", leftover)
		}
	}

	info, err := os.Stat(currentBinary)
	if err != nil {
		t.Fatalf("Failed to stat binary: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Error("Binary should be executable")
	}
}

func TestReplace_VerificationFails(t *testing.T) {
	skipWithoutShell(t)

	tmpDir := t.TempDir()
	currentBinary := filepath.Join(tmpDir, "upkeep")
	newBinary := filepath.Join(tmpDir, "upkeep-download")

	currentScript := sprintfScript("2.2.0")
	writeScript(t, currentBinary, currentScript)
	writeScript(t, newBinary, "#!/bin/sh\nexit 1\n")

	replacer := NewBinaryReplacer(currentBinary)
	if err := replacer.Replace(newBinary); err == nil {
		t.Error("Expected error for broken binary")
	}

	content, err := os.ReadFile(currentBinary)
	if err != nil {
		t.Fatalf("Failed to read binary: %v", err)
	}
	if string(content) != currentScript {
		t.Error("Original binary should be restored after failed verification")
	}
}

func TestReplace_BackupFails(t *testing.T) {
	tmpDir := t.TempDir()
	currentBinary := filepath.Join(tmpDir, "upkeep")
	newBinary := filepath.Join(tmpDir, "upkeep-download")

	// current binary missing, so the backup rename fails
	if err := os.WriteFile(newBinary, []byte("new content"), 0o755); err != nil {
		t.Fatalf("Failed to create new binary: %v", err)
	}

	replacer := NewBinaryReplacer(currentBinary)
	if err := replacer.Replace(newBinary); err == nil {
		t.Error("Expected error when backup fails")
	}

	if _, err := os.Stat(newBinary); os.IsNotExist(err) {
		t.Error("New binary should still exist after failed backup")
	}
	if _, err := os.Stat(replacer.stagedPath); !os.IsNotExist(err) {
		t.Error("Staged copy should be cleaned up after failed backup")
	}
}

func TestVerifyBinary(t *testing.T) {
	skipWithoutShell(t)

	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good")
	bad := filepath.Join(tmpDir, "bad")
	plain := filepath.Join(tmpDir, "plain")
	writeScript(t, good, sprintfScript("1.0.0"))
	writeScript(t, bad, "#!/bin/sh\nexit 1\n")
	if err := os.WriteFile(plain, []byte("#!/bin/sh\necho test\n"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	replacer := NewBinaryReplacer(good)
	if err := replacer.verifyBinary(good); err != nil {
		t.Errorf("verifyBinary(good) error = %v", err)
	}
	if err := replacer.verifyBinary(bad); err == nil {
		t.Error("Expected error for failing binary")
	}
	if err := replacer.verifyBinary(plain); err == nil {
		t.Error("Expected error for non-executable binary")
	}
	if err := replacer.verifyBinary(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Expected error for non-existent binary")
	}
}

func TestCopyFile(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src")
	dst := filepath.Join(tmpDir, "dst")
	if err := os.WriteFile(src, []byte("payload"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst, 0o755); err != nil {
		t.Fatalf("copyFile() error = %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "payload" {
		t.Fatalf("copied content = %q, %v", got, err)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(dst)
		if info.Mode().Perm() != 0o755 {
			t.Errorf("mode = %o, want 755", info.Mode().Perm())
		}
	}

	if err := copyFile(filepath.Join(tmpDir, "nope"), dst, 0o755); err == nil {
		t.Error("expected error for missing source")
	}
}
