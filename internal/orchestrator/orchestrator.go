// Package orchestrator drives one update session at a time: check the feed,
// resolve release notes, ask for consent, download, and schedule the
// install.
//
// A single loop goroutine owns all session state. Public methods send
// requests to the loop and wait for its reply. Feed calls, prompts and
// downloads run on helper goroutines that report back by posting events,
// so the loop keeps answering Status, rejected checks and Quit while a
// prompt is open. Events from an earlier session are dropped.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

const eventQueueSize = 64

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers fn for lifecycle events. Observers run on the
// loop goroutine and must not call back into the orchestrator.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithAutoDownload accepts updates when the consent prompt cannot be shown.
func WithAutoDownload(enabled bool) Option {
	return func(o *Orchestrator) {
		o.autoDownload = enabled
	}
}

// WithChangelog sets how the changelog reference for an update is built.
// The default is the release page URL reported by the feed.
func WithChangelog(fn func(*update.Info) string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.changelog = fn
		}
	}
}

// Orchestrator is the update state machine.
type Orchestrator struct {
	feed         Feed
	resolver     Resolver
	surface      Surface
	checker      *Checker
	consent      *ConsentGate
	downloads    *DownloadManager
	installs     *InstallScheduler
	observers    []func(Event)
	changelog    func(*update.Info) string
	autoDownload bool

	requests chan any
	events   chan loopEvent
	done     chan struct{}
	running  atomic.Bool

	// owned by the loop goroutine
	state          State
	session        uint64
	info           *update.Info
	bullets        []string
	progress       float64
	pendingInstall bool
	pendingVersion update.Version
	lastErr        error
	lastOutcome    types.Outcome
	waiter         chan checkReply
	sessionCtx     context.Context
	cancelSession  context.CancelFunc
}

// New creates an orchestrator. Run must be started before the other
// methods are used.
func New(feed Feed, resolver Resolver, surface Surface, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		feed:     feed,
		resolver: resolver,
		surface:  surface,
		changelog: func(info *update.Info) string {
			return info.ReleaseURL
		},
		requests: make(chan any),
		events:   make(chan loopEvent, eventQueueSize),
		done:     make(chan struct{}),
		state:    Idle{},
	}
	for _, opt := range opts {
		opt(o)
	}

	o.checker = NewChecker(feed)
	o.consent = NewConsentGate(surface, o.autoDownload)
	o.downloads = NewDownloadManager(feed)
	o.installs = NewInstallScheduler(surface)
	return o
}

// Run is the event loop. It returns when ctx ends or after Quit.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errors.New("orchestrator already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		if o.cancelSession != nil {
			o.cancelSession()
		}
		o.replyWaiter(nil, ErrStopped)
		close(o.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-o.requests:
			if stop := o.handleRequest(ctx, req); stop {
				return nil
			}
		case ev := <-o.events:
			o.handleEvent(ctx, ev)
		}
	}
}

// CheckForUpdate starts a session and returns once the feed has answered.
// A nil info means no update is available; the rest of the session
// continues in the background. ErrCheckInProgress is returned while
// another session is active.
func (o *Orchestrator) CheckForUpdate(ctx context.Context) (*update.Info, error) {
	req := checkRequest{reply: make(chan checkReply, 1)}
	if err := o.send(ctx, req); err != nil {
		return nil, err
	}
	select {
	case r := <-req.reply:
		return r.info, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns a snapshot of the current session.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	req := statusRequest{reply: make(chan Status, 1)}
	if err := o.send(ctx, req); err != nil {
		return Status{}, err
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Quit is the host exit hook. It abandons a session suspended on a prompt,
// installs a pending update, and stops the loop.
func (o *Orchestrator) Quit(ctx context.Context) error {
	req := quitRequest{ctx: ctx, reply: make(chan error, 1)}
	if err := o.send(ctx, req); err != nil {
		if errors.Is(err, ErrStopped) {
			return nil
		}
		return err
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run has returned.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

func (o *Orchestrator) send(ctx context.Context, req any) error {
	select {
	case o.requests <- req:
		return nil
	case <-o.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a helper result to the loop, or drops it once the loop is gone.
func (o *Orchestrator) post(ev loopEvent) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) handleRequest(ctx context.Context, req any) bool {
	switch r := req.(type) {
	case checkRequest:
		o.startSession(ctx, r.reply)
	case statusRequest:
		r.reply <- o.snapshot()
	case quitRequest:
		r.reply <- o.quit(r.ctx)
		return true
	default:
		log.Warnf("unknown orchestrator request %T", req)
	}
	return false
}

func (o *Orchestrator) handleEvent(ctx context.Context, ev loopEvent) {
	if ev.sessionID() != o.session {
		log.Debugf("dropping %T from session %d, current session is %d", ev, ev.sessionID(), o.session)
		return
	}

	switch e := ev.(type) {
	case checkDone:
		o.onCheckDone(e)
	case notesDone:
		o.onNotesDone(e)
	case consentDone:
		o.onConsentDone(ctx, e)
	case progressMade:
		o.onProgress(e)
	case downloadDone:
		o.onDownloadDone(e)
	case installDecisionDone:
		o.onInstallDecisionDone(ctx, e)
	case installFailed:
		o.onInstallFailed(e)
	default:
		log.Warnf("unknown orchestrator event %T", ev)
	}
}

func (o *Orchestrator) startSession(ctx context.Context, reply chan checkReply) {
	if name := o.state.Name(); !name.IsSettled() {
		log.Debugf("update check rejected in state %s", name)
		reply <- checkReply{err: ErrCheckInProgress}
		return
	}

	o.session++
	o.sessionCtx, o.cancelSession = context.WithCancel(ctx)
	o.info, o.bullets, o.progress, o.lastErr = nil, nil, 0, nil
	o.waiter = reply
	o.surface.ClearProgress()
	o.transition(Checking{})
	o.emit(Event{Kind: EventChecking, Session: o.session})

	session, sessionCtx := o.session, o.sessionCtx
	go func() {
		info, err := o.checker.Check(sessionCtx)
		o.post(checkDone{session: session, info: info, err: err})
	}()
}

func (o *Orchestrator) onCheckDone(e checkDone) {
	if _, ok := o.state.(Checking); !ok {
		o.drop(e)
		return
	}

	if e.err != nil {
		log.Warnf("update check failed: %v", e.err)
		o.replyWaiter(nil, e.err)
		o.notify("Update check failed", e.err.Error())
		o.endSession(types.OutcomeCheckFailed, e.err)
		return
	}

	if e.info == nil {
		log.Infof("no update available")
		o.replyWaiter(nil, nil)
		o.emit(Event{Kind: EventNoUpdateFound, Session: e.session})
		o.endSession(types.OutcomeNoUpdate, nil)
		return
	}

	o.info = e.info
	o.replyWaiter(e.info, nil)
	o.emit(Event{Kind: EventUpdateFound, Session: e.session, Info: e.info})

	if o.pendingInstall && e.info.Version.IsEqual(o.pendingVersion) {
		log.Infof("update %s is already downloaded and installs on quit", e.info.Version)
		o.endSession(types.OutcomeInstallPending, nil)
		return
	}

	log.Infof("update %s available", e.info.Version)
	o.transition(ResolvingNotes{Info: e.info})

	info, sessionCtx := e.info, o.sessionCtx
	go func() {
		o.post(notesDone{session: e.session, bullets: o.resolver.Resolve(sessionCtx, info)})
	}()
}

func (o *Orchestrator) onNotesDone(e notesDone) {
	st, ok := o.state.(ResolvingNotes)
	if !ok {
		o.drop(e)
		return
	}

	bullets := e.bullets
	if bullets == nil {
		bullets = []string{}
	}
	o.bullets = bullets
	o.emit(Event{Kind: EventNotesResolved, Session: e.session, Info: st.Info, Bullets: cloneBullets(bullets)})
	o.transition(AwaitingConsent{Info: st.Info, Bullets: bullets})

	info, sessionCtx := st.Info, o.sessionCtx
	shown := cloneBullets(bullets)
	go func() {
		decision, err := o.consent.RequestConsent(sessionCtx, info, shown)
		o.post(consentDone{session: e.session, decision: decision, err: err})
	}()
}

func (o *Orchestrator) onConsentDone(ctx context.Context, e consentDone) {
	st, ok := o.state.(AwaitingConsent)
	if !ok {
		o.drop(e)
		return
	}

	if e.err != nil {
		log.Warnf("consent prompt failed, continuing with %s: %v", e.decision, e.err)
	}
	o.emit(Event{Kind: EventConsentDecided, Session: e.session, Info: st.Info, Consent: e.decision, Err: e.err})

	switch e.decision {
	case types.ConsentAccept:
		o.startDownload(ctx, st.Info)
	case types.ConsentViewChangelog:
		url := o.changelog(st.Info)
		log.Infof("opening changelog %s", url)
		if err := o.surface.OpenExternal(url); err != nil {
			log.Warnf("failed to open changelog %s: %v", url, err)
		}
		o.endSession(types.OutcomeDeferred, nil)
	default:
		log.Infof("update %s deferred", st.Info.Version)
		o.endSession(types.OutcomeDeferred, nil)
	}
}

// startDownload runs the download under the loop context so that Quit
// abandons prompts without cutting off bytes already in flight.
func (o *Orchestrator) startDownload(ctx context.Context, info *update.Info) {
	o.progress = 0
	o.transition(Downloading{Info: info})

	session := o.session
	go func() {
		err := o.downloads.Start(ctx, info, func(fraction float64) {
			o.post(progressMade{session: session, fraction: fraction})
		})
		o.post(downloadDone{session: session, err: err})
	}()
}

func (o *Orchestrator) onProgress(e progressMade) {
	st, ok := o.state.(Downloading)
	if !ok {
		o.drop(e)
		return
	}
	if e.fraction < st.Fraction {
		return
	}

	st.Fraction = e.fraction
	o.state = st
	o.progress = e.fraction
	o.surface.SetProgress(e.fraction)
	o.emit(Event{Kind: EventDownloadProgress, Session: e.session, Info: st.Info, Progress: e.fraction})
}

func (o *Orchestrator) onDownloadDone(e downloadDone) {
	st, ok := o.state.(Downloading)
	if !ok {
		o.drop(e)
		return
	}

	if e.err != nil {
		log.Errorf("update download failed: %v", e.err)
		o.emit(Event{Kind: EventDownloadFailed, Session: e.session, Info: st.Info, Err: e.err})
		o.notify("Update download failed", e.err.Error())
		o.endSession(types.OutcomeDownloadFailed, e.err)
		return
	}

	o.progress = 1
	o.surface.ClearProgress()
	o.transition(Downloaded{Info: st.Info})
	o.emit(Event{Kind: EventDownloaded, Session: e.session, Info: st.Info})
	o.transition(AwaitingInstallDecision{Info: st.Info})

	info, sessionCtx := st.Info, o.sessionCtx
	go func() {
		decision, err := o.installs.RequestInstallDecision(sessionCtx, info)
		o.post(installDecisionDone{session: e.session, decision: decision, err: err})
	}()
}

func (o *Orchestrator) onInstallDecisionDone(ctx context.Context, e installDecisionDone) {
	st, ok := o.state.(AwaitingInstallDecision)
	if !ok {
		o.drop(e)
		return
	}

	if e.err != nil {
		log.Warnf("install prompt failed, installing on quit: %v", e.err)
	}
	o.emit(Event{Kind: EventInstallDecided, Session: e.session, Info: st.Info, Install: e.decision, Err: e.err})

	if e.decision != types.InstallRestartNow {
		o.markPending(st.Info)
		o.emit(Event{Kind: EventInstallPending, Session: e.session, Info: st.Info})
		o.endSession(types.OutcomeInstallPending, nil)
		return
	}

	log.Infof("installing %s and restarting", st.Info.Version)
	o.lastOutcome = types.OutcomeInstalling
	o.transition(Installing{Info: st.Info})
	o.emit(Event{Kind: EventInstalling, Session: e.session, Info: st.Info})

	go func() {
		if err := o.feed.QuitAndInstall(ctx); err != nil {
			o.post(installFailed{session: e.session, err: err})
		}
	}()
}

func (o *Orchestrator) onInstallFailed(e installFailed) {
	st, ok := o.state.(Installing)
	if !ok || st.Info == nil {
		o.drop(e)
		return
	}

	log.Errorf("restart install failed, installing on quit instead: %v", e.err)
	o.notify("Update install failed", fmt.Sprintf("%s will be installed when you quit.", st.Info.Version))
	o.markPending(st.Info)
	o.emit(Event{Kind: EventInstallPending, Session: e.session, Info: st.Info, Err: e.err})
	o.endSession(types.OutcomeInstallPending, e.err)
}

func (o *Orchestrator) quit(ctx context.Context) error {
	switch o.state.(type) {
	case Checking, ResolvingNotes, AwaitingConsent, Downloading, Downloaded, AwaitingInstallDecision:
		log.Infof("abandoning update session %d in state %s", o.session, o.state.Name())
		o.replyWaiter(nil, ErrStopped)
		o.endSession(types.OutcomeAbandoned, nil)
	case Installing:
		return nil
	}

	if !o.pendingInstall {
		return nil
	}

	log.Infof("installing %s on quit", o.pendingVersion)
	if err := o.feed.InstallOnQuit(ctx); err != nil {
		log.Errorf("install on quit failed: %v", err)
		o.lastErr = err
		return fmt.Errorf("install on quit: %w", err)
	}

	o.pendingInstall = false
	o.transition(Installing{Info: o.info})
	o.emit(Event{Kind: EventInstalling, Session: o.session, Info: o.info})
	return nil
}

func (o *Orchestrator) markPending(info *update.Info) {
	o.pendingInstall = true
	o.pendingVersion = info.Version
}

// endSession settles the machine. A staged update keeps it in
// InstallPending whatever the outcome of this session.
func (o *Orchestrator) endSession(outcome types.Outcome, err error) {
	o.lastOutcome = outcome
	o.lastErr = err
	o.surface.ClearProgress()
	if o.cancelSession != nil {
		o.cancelSession()
	}

	if o.pendingInstall {
		o.transition(InstallPending{Version: o.pendingVersion})
	} else {
		o.transition(Idle{Outcome: outcome})
	}
	o.emit(Event{Kind: EventSessionEnded, Session: o.session, Info: o.info, Outcome: outcome, Err: err})
}

func (o *Orchestrator) transition(next State) {
	log.Infof("update state %s -> %s", o.state.Name(), next.Name())
	o.state = next
}

func (o *Orchestrator) drop(ev loopEvent) {
	log.Debugf("dropping %T in state %s", ev, o.state.Name())
}

func (o *Orchestrator) replyWaiter(info *update.Info, err error) {
	if o.waiter == nil {
		return
	}
	o.waiter <- checkReply{info: info, err: err}
	o.waiter = nil
}

func (o *Orchestrator) emit(ev Event) {
	for _, fn := range o.observers {
		fn(ev)
	}
}

// notify is best effort; a failing surface never interrupts the session.
func (o *Orchestrator) notify(title, body string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("notification %q failed: %v", title, r)
		}
	}()
	o.surface.Notify(title, body)
}

func (o *Orchestrator) snapshot() Status {
	s := Status{
		State:          o.state.Name(),
		Session:        o.session,
		Bullets:        cloneBullets(o.bullets),
		Progress:       o.progress,
		PendingInstall: o.pendingInstall,
		LastOutcome:    o.lastOutcome,
		err:            o.lastErr,
	}
	switch {
	case o.info != nil:
		s.Version = o.info.Version.String()
	case o.pendingInstall:
		s.Version = o.pendingVersion.String()
	}
	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}
	return s
}

func cloneBullets(bullets []string) []string {
	if bullets == nil {
		return nil
	}
	return append([]string{}, bullets...)
}
