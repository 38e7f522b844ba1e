package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

const waitTimeout = 2 * time.Second

type checkResult struct {
	info *update.Info
	err  error
}

type fakeFeed struct {
	mu sync.Mutex

	checks    []checkResult
	checkGate chan struct{}

	fractions    []float64
	downloadErr  error
	downloadGate chan struct{}

	quitAndInstallErr error
	installOnQuitErr  error

	checkCalls          int
	downloadCalls       int
	quitAndInstallCalls int
	installOnQuitCalls  int
}

func (f *fakeFeed) CheckForUpdate(ctx context.Context) (*update.Info, error) {
	f.mu.Lock()
	gate := f.checkGate
	f.checkCalls++
	var result checkResult
	if len(f.checks) > 0 {
		result = f.checks[0]
		if len(f.checks) > 1 {
			f.checks = f.checks[1:]
		}
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result.info, result.err
}

func (f *fakeFeed) DownloadUpdate(ctx context.Context, info *update.Info, progress func(float64)) error {
	f.mu.Lock()
	f.downloadCalls++
	fractions, gate, err := f.fractions, f.downloadGate, f.downloadErr
	f.mu.Unlock()

	for _, fr := range fractions {
		progress(fr)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeFeed) QuitAndInstall(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quitAndInstallCalls++
	return f.quitAndInstallErr
}

func (f *fakeFeed) InstallOnQuit(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installOnQuitCalls++
	return f.installOnQuitErr
}

func (f *fakeFeed) counts() (checks, downloads, restarts, quits int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls, f.downloadCalls, f.quitAndInstallCalls, f.installOnQuitCalls
}

type answer struct {
	choice int
	err    error
}

type prompt struct {
	title   string
	message string
	options []string
	answer  chan answer
}

func (p prompt) choose(i int) {
	p.answer <- answer{choice: i}
}

func (p prompt) fail(err error) {
	p.answer <- answer{err: err}
}

type fakeSurface struct {
	prompts   chan prompt
	promptErr error
	openErr   error

	mu            sync.Mutex
	notifications []string
	progress      []float64
	clears        int
	opened        []string
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{prompts: make(chan prompt, 4)}
}

func (s *fakeSurface) ShowChoice(ctx context.Context, title, message string, options []string) (int, error) {
	if s.promptErr != nil {
		return 0, s.promptErr
	}
	p := prompt{title: title, message: message, options: options, answer: make(chan answer, 1)}
	select {
	case s.prompts <- p:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case a := <-p.answer:
		return a.choice, a.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *fakeSurface) Notify(title, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, title+": "+body)
}

func (s *fakeSurface) SetProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, fraction)
}

func (s *fakeSurface) ClearProgress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
}

func (s *fakeSurface) OpenExternal(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, url)
	return s.openErr
}

func (s *fakeSurface) snapshot() (notifications []string, progress []float64, opened []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.notifications...), append([]float64{}, s.progress...), append([]string{}, s.opened...)
}

func (s *fakeSurface) nextPrompt(t *testing.T) prompt {
	t.Helper()
	select {
	case p := <-s.prompts:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a prompt")
		return prompt{}
	}
}

func (s *fakeSurface) requireNoPrompt(t *testing.T) {
	t.Helper()
	select {
	case p := <-s.prompts:
		t.Fatalf("unexpected prompt %q", p.title)
	default:
	}
}

type staticResolver struct {
	bullets []string
}

func (r staticResolver) Resolve(context.Context, *update.Info) []string {
	return r.bullets
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (r *recorder) progress() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []float64
	for _, ev := range r.events {
		if ev.Kind == EventDownloadProgress {
			out = append(out, ev.Progress)
		}
	}
	return out
}

func (r *recorder) last(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func testInfo(version string, notes any) *update.Info {
	return &update.Info{
		Version:         update.MustParseVersion(version),
		CurrentVersion:  update.MustParseVersion("2.2.0"),
		ReleaseURL:      "https://github.com/acme/widget/releases/tag/v" + version,
		RawReleaseNotes: notes,
	}
}

// start runs o until the test ends.
func start(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-o.Done()
	})
}

func waitState(t *testing.T, o *Orchestrator, want types.StateName) Status {
	t.Helper()
	var last Status
	require.Eventually(t, func() bool {
		s, err := o.Status(context.Background())
		if err != nil {
			return false
		}
		last = s
		return s.State == want
	}, waitTimeout, 5*time.Millisecond, "state never reached %s", want)
	return last
}
