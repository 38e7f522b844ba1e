// Package git wraps the git commands used by the release tooling.
package git

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotWorkTree is returned when the directory is not inside a git work tree.
var ErrNotWorkTree = errors.New("not inside a git repository")

// ErrNoRemote is returned when the named remote is not configured.
var ErrNoRemote = errors.New("git remote not found")

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
	RunInDir(dir, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

// Run executes a command in the current directory.
func (r *DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// RunInDir executes a command in the specified directory.
func (r *DefaultCommandRunner) RunInDir(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Repo runs git commands against one working directory.
type Repo struct {
	dir    string
	runner CommandRunner
}

// NewRepo creates a Repo for dir with the default command runner.
// An empty dir means the current directory.
func NewRepo(dir string) *Repo {
	return &Repo{dir: dir, runner: &DefaultCommandRunner{}}
}

// NewRepoWithRunner creates a Repo with a custom command runner (for testing).
func NewRepoWithRunner(dir string, runner CommandRunner) *Repo {
	return &Repo{dir: dir, runner: runner}
}

// Dir returns the working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// GitAvailable checks if git is available on the system.
func (r *Repo) GitAvailable() bool {
	_, err := r.runner.Run("git", "--version")
	return err == nil
}

// IsWorkTree reports whether dir is inside a git work tree.
func (r *Repo) IsWorkTree() bool {
	out, err := r.git("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// RemoteURL returns the URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	out, err := r.git("remote", "get-url", name)
	if err != nil || out == "" {
		return "", fmt.Errorf("%w: %q", ErrNoRemote, name)
	}
	return out, nil
}

// LatestTag returns the most recent tag reachable from HEAD, or "" when there is none.
func (r *Repo) LatestTag() string {
	out, err := r.git("describe", "--tags", "--abbrev=0")
	if err != nil {
		return ""
	}
	return out
}

// CommitSubjects returns non-merge commit subjects after since, newest first.
// An empty since lists the whole history.
func (r *Repo) CommitSubjects(since string) ([]string, error) {
	rangeSpec := "HEAD"
	if since != "" {
		rangeSpec = since + "..HEAD"
	}
	out, err := r.git("log", rangeSpec, "--pretty=%s", "--no-merges")
	if err != nil {
		return nil, err
	}

	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

// HasTag reports whether tag exists locally.
func (r *Repo) HasTag(tag string) (bool, error) {
	out, err := r.git("tag", "-l", tag)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// CreateTag creates a lightweight tag at HEAD.
func (r *Repo) CreateTag(tag string) error {
	_, err := r.git("tag", tag)
	return err
}

// DeleteTag deletes a local tag.
func (r *Repo) DeleteTag(tag string) error {
	_, err := r.git("tag", "-d", tag)
	return err
}

// PushTag pushes tag to remote.
func (r *Repo) PushTag(remote, tag string) error {
	_, err := r.git("push", remote, tag)
	return err
}

// DeleteRemoteTag removes tag from remote.
func (r *Repo) DeleteRemoteTag(remote, tag string) error {
	_, err := r.git("push", remote, ":refs/tags/"+tag)
	return err
}

func (r *Repo) git(args ...string) (string, error) {
	var (
		out []byte
		err error
	)
	if r.dir == "" {
		out, err = r.runner.Run("git", args...)
	} else {
		out, err = r.runner.RunInDir(r.dir, "git", args...)
	}
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	return trimmed, nil
}
