// Package session runs the turn-taking loop between capture, inference, and playback.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/aryan-manish-vaidya/Aurora/internal/capture"
	"github.com/aryan-manish-vaidya/Aurora/internal/fsm"
	"github.com/aryan-manish-vaidya/Aurora/internal/inference"
	"github.com/aryan-manish-vaidya/Aurora/internal/playback"
	"github.com/aryan-manish-vaidya/Aurora/internal/transcript"
)

var (
	// ErrInputLocked is returned when a reply is still being generated.
	ErrInputLocked = errors.New("input is locked while a reply is pending")
	// ErrEmptyText rejects blank typed input.
	ErrEmptyText = errors.New("text is empty")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("session controller stopped")
)

// Capture starts and stops recognition attempts.
type Capture interface {
	Start(ctx context.Context) (capture.Attempt, error)
	Stop()
}

// Inference produces one reply for a conversation history.
type Inference interface {
	Complete(ctx context.Context, history []transcript.Turn, credential string) (string, error)
}

// Playback speaks one utterance at a time.
type Playback interface {
	Speak(ctx context.Context, text string) (playback.Utterance, error)
	Cancel()
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(context.Context)
	ShowThinking(context.Context)
	ShowSpeaking(context.Context)
	ShowError(context.Context, string)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)     {}
func (noopIndicator) ShowThinking(context.Context)      {}
func (noopIndicator) ShowSpeaking(context.Context)      {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) Hide(context.Context)              {}

// unavailableCapture fails every start the way a missing recognizer does.
type unavailableCapture struct{}

func (unavailableCapture) Start(context.Context) (capture.Attempt, error) {
	return capture.Attempt{}, capture.ErrUnavailable
}
func (unavailableCapture) Stop() {}

// Options wires a Controller.
type Options struct {
	Logger     *slog.Logger
	Store      *transcript.Store
	Capture    Capture
	Inference  Inference
	Playback   Playback
	Indicator  Indicator
	Credential string
}

// Controller owns the turn state. All mutations happen on the Run goroutine.
type Controller struct {
	logger    *slog.Logger
	store     *transcript.Store
	capture   Capture
	inference Inference
	playback  Playback
	indicator Indicator

	inbox chan message
	done  chan struct{}
	once  sync.Once

	// overflow for post once inbox is full, drained in order by one goroutine
	backlogMu  sync.Mutex
	backlog    []message
	forwarding bool

	// loop-owned
	runCtx          context.Context
	state           fsm.State
	errorMessage    string
	credential      string
	attempt         uint64
	request         uint64
	utterance       uint64
	cancelInference context.CancelFunc

	mu        sync.RWMutex
	view      View
	observers map[int]func(View)
	nextObs   int
}

// NewController constructs a controller with safe fallbacks for unwired capabilities.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = transcript.New(Greeting(strings.TrimSpace(opts.Credential) != ""))
	}
	if opts.Capture == nil {
		opts.Capture = unavailableCapture{}
	}
	if opts.Indicator == nil {
		opts.Indicator = noopIndicator{}
	}

	c := &Controller{
		logger:     opts.Logger,
		store:      opts.Store,
		capture:    opts.Capture,
		inference:  opts.Inference,
		playback:   opts.Playback,
		indicator:  opts.Indicator,
		inbox:      make(chan message, 64),
		done:       make(chan struct{}),
		runCtx:     context.Background(),
		state:      fsm.StateIdle,
		credential: strings.TrimSpace(opts.Credential),
		observers:  make(map[int]func(View)),
	}
	c.view = c.project()
	return c
}

// Run processes commands and component events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.once.Do(func() { started = true })
	if !started {
		return errors.New("session controller already ran")
	}
	defer close(c.done)

	c.runCtx = ctx
	c.logger.Info("session started", "state", string(c.state))
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-c.inbox:
			c.dispatch(msg)
		}
	}
}

// View returns the latest published projection.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// State returns the latest published state.
func (c *Controller) State() fsm.State {
	return c.View().State
}

// Subscribe registers fn to receive a View after every change. Observers run on the
// controller goroutine and must not block or call back into the controller synchronously.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// ActivateVoice toggles listening, barging in on playback when speaking.
func (c *Controller) ActivateVoice(ctx context.Context) error {
	return c.do(ctx, activateMsg{})
}

// SubmitText runs one typed utterance.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return c.do(ctx, submitMsg{text: strings.TrimSpace(text)})
}

// DismissError clears the surfaced error message.
func (c *Controller) DismissError(ctx context.Context) error {
	return c.do(ctx, dismissMsg{})
}

// SetCredential replaces the inference credential for subsequent turns.
func (c *Controller) SetCredential(ctx context.Context, value string) error {
	return c.do(ctx, credentialMsg{value: strings.TrimSpace(value)})
}

// OnCapture feeds a capture adapter event into the loop.
func (c *Controller) OnCapture(event capture.Event) {
	c.post(captureMsg{event: event})
}

// OnPlayback feeds a playback adapter event into the loop.
func (c *Controller) OnPlayback(event playback.Event) {
	c.post(playbackMsg{event: event})
}

func (c *Controller) do(ctx context.Context, cmd command) error {
	reply := make(chan error, 1)
	env := commandMsg{cmd: cmd, reply: reply}

	select {
	case c.inbox <- env:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// post enqueues a component event without blocking the caller. Events
// reach the loop in the order they were posted.
func (c *Controller) post(msg message) {
	c.backlogMu.Lock()
	defer c.backlogMu.Unlock()

	if len(c.backlog) == 0 {
		select {
		case c.inbox <- msg:
			return
		default:
		}
	}
	c.backlog = append(c.backlog, msg)
	if !c.forwarding {
		c.forwarding = true
		go c.forward()
	}
}

func (c *Controller) forward() {
	for {
		c.backlogMu.Lock()
		if len(c.backlog) == 0 {
			c.forwarding = false
			c.backlogMu.Unlock()
			return
		}
		msg := c.backlog[0]
		c.backlogMu.Unlock()

		select {
		case c.inbox <- msg:
		case <-c.done:
			return
		}

		c.backlogMu.Lock()
		c.backlog[0] = nil
		c.backlog = c.backlog[1:]
		c.backlogMu.Unlock()
	}
}

func (c *Controller) dispatch(msg message) {
	switch m := msg.(type) {
	case commandMsg:
		m.reply <- c.handleCommand(m.cmd)
	case captureMsg:
		c.onCapture(m.event)
	case inferenceMsg:
		c.onInference(m)
	case playbackMsg:
		c.onPlayback(m.event)
	}
}

func (c *Controller) handleCommand(cmd command) error {
	switch cmd := cmd.(type) {
	case activateMsg:
		return c.activate("", true)
	case submitMsg:
		return c.activate(cmd.text, false)
	case dismissMsg:
		if c.errorMessage != "" {
			c.errorMessage = ""
			c.indicator.Hide(c.runCtx)
			c.publish()
		}
		return nil
	case credentialMsg:
		c.credential = cmd.value
		c.logger.Info("credential updated", "configured", cmd.value != "")
		c.publish()
		return nil
	default:
		return errors.New("unknown command")
	}
}

func (c *Controller) activate(text string, voice bool) error {
	if !fsm.AcceptsInput(c.state) || c.hasPending() {
		c.logger.Debug("activation ignored", "state", string(c.state), "voice", voice)
		return ErrInputLocked
	}

	switch c.state {
	case fsm.StateSpeaking:
		c.playback.Cancel()
		c.utterance = 0
		if err := c.transition(fsm.EventBargeIn); err != nil {
			return err
		}
		c.publish()
	case fsm.StateListening:
		c.capture.Stop()
		c.attempt = 0
		if err := c.transition(fsm.EventCancel); err != nil {
			return err
		}
		if voice {
			c.indicator.Hide(c.runCtx)
			c.publish()
			return nil
		}
	}

	c.errorMessage = ""
	if voice {
		c.startListening()
		return nil
	}
	c.utter(text)
	return nil
}

func (c *Controller) startListening() {
	if err := c.transition(fsm.EventListen); err != nil {
		return
	}
	c.indicator.ShowListening(c.runCtx)
	c.publish()

	attempt, err := c.capture.Start(c.runCtx)
	if err != nil {
		c.logger.Warn("capture start failed", "error", err.Error())
		c.fail(capture.StartMessage(err))
		return
	}
	c.attempt = attempt.ID
	c.logger.Debug("capture started", "attempt", attempt.ID)
}

// utter appends the user turn and its pending reply, then asks for inference.
func (c *Controller) utter(text string) {
	userTurn, err := c.store.Append(transcript.Turn{Speaker: transcript.SpeakerUser, Text: text})
	if err != nil {
		c.abort(err)
		return
	}
	if _, err := c.store.Append(transcript.Turn{Speaker: transcript.SpeakerAssistant, Text: PendingText, Pending: true}); err != nil {
		c.abort(err)
		return
	}
	if err := c.transition(fsm.EventUtterance); err != nil {
		c.abort(err)
		return
	}
	c.logger.Info("user turn", "turn_id", userTurn.ID, "chars", len(text))
	c.indicator.ShowThinking(c.runCtx)
	c.publish()

	if c.credential == "" || c.inference == nil {
		c.errorMessage = MissingKeyMessage
		c.reply(MissingKeyMessage, MissingKeyMessage)
		return
	}

	c.request++
	id := c.request
	ctx, cancel := context.WithCancel(c.runCtx)
	c.cancelInference = cancel
	history := c.store.Snapshot()
	credential := c.credential

	go func() {
		reply, err := c.inference.Complete(ctx, history, credential)
		c.post(inferenceMsg{request: id, reply: reply, err: err})
	}()
}

func (c *Controller) onInference(msg inferenceMsg) {
	if msg.request != c.request || c.state != fsm.StateThinking {
		c.logger.Debug("stale inference result dropped", "request", msg.request)
		return
	}
	if c.cancelInference != nil {
		c.cancelInference()
		c.cancelInference = nil
	}

	switch {
	case msg.err == nil:
		c.reply(msg.reply, msg.reply)
	case errors.Is(msg.err, inference.ErrMissingCredential):
		c.errorMessage = MissingKeyMessage
		c.reply(MissingKeyMessage, MissingKeyMessage)
	default:
		c.logger.Warn("inference failed", "request", msg.request, "error", msg.err.Error())
		c.reply(FailureTurnText, FailureSpokenText)
	}
}

// reply finalizes the pending turn with turnText and speaks spoken.
func (c *Controller) reply(turnText, spoken string) {
	turn, err := c.store.ReplacePending(turnText)
	if err != nil {
		c.abort(err)
		return
	}
	if err := c.transition(fsm.EventReply); err != nil {
		c.abort(err)
		return
	}
	c.logger.Info("assistant turn", "turn_id", turn.ID, "chars", len(turnText))
	c.indicator.ShowSpeaking(c.runCtx)

	if c.playback == nil {
		c.publish()
		c.spoken()
		return
	}
	utt, err := c.playback.Speak(c.runCtx, spoken)
	if err != nil {
		c.logger.Warn("playback start failed", "error", err.Error())
		c.publish()
		c.spoken()
		return
	}
	c.utterance = utt.ID
	c.publish()
}

func (c *Controller) onPlayback(event playback.Event) {
	if event.Utterance == 0 || event.Utterance != c.utterance {
		return
	}
	switch event.Type {
	case playback.EventStarted:
		c.logger.Debug("playback started", "utterance", event.Utterance)
	case playback.EventEnded:
		if event.Err != nil {
			c.logger.Warn("playback failed", "utterance", event.Utterance, "error", event.Err.Error())
		}
		c.spoken()
	}
}

func (c *Controller) spoken() {
	c.utterance = 0
	if c.state != fsm.StateSpeaking {
		return
	}
	if err := c.transition(fsm.EventSpoken); err != nil {
		return
	}
	if c.errorMessage == "" {
		c.indicator.Hide(c.runCtx)
	}
	c.publish()
}

func (c *Controller) onCapture(event capture.Event) {
	if event.Attempt == 0 || event.Attempt != c.attempt {
		return
	}

	switch event.Type {
	case capture.EventStarted:
		c.logger.Debug("capture listening", "attempt", event.Attempt)
	case capture.EventResult:
		c.attempt = 0
		if c.state != fsm.StateListening {
			return
		}
		c.utter(event.Text)
	case capture.EventError:
		c.attempt = 0
		if c.state != fsm.StateListening {
			return
		}
		kind := capture.KindOther
		if event.Err != nil {
			kind = event.Err.Kind
		}
		c.fail(capture.Message(kind))
	case capture.EventEnded:
		c.attempt = 0
		if c.state != fsm.StateListening {
			return
		}
		if err := c.transition(fsm.EventCancel); err != nil {
			return
		}
		c.indicator.Hide(c.runCtx)
		c.publish()
	}
}

// fail surfaces message through errored and resolves back to idle.
func (c *Controller) fail(message string) {
	if err := c.transition(fsm.EventFail); err != nil {
		return
	}
	c.errorMessage = message
	c.indicator.ShowError(c.runCtx, message)
	c.publish()

	if err := c.transition(fsm.EventReset); err != nil {
		return
	}
	c.publish()
}

// abort recovers from a transcript invariant violation by returning to idle.
func (c *Controller) abort(err error) {
	c.logger.Error("turn aborted", "state", string(c.state), "error", err.Error())
	c.stopWork()
	if _, pending := c.store.Pending(); pending {
		_, _ = c.store.ReplacePending(FailureTurnText)
	}
	if c.state != fsm.StateIdle && c.state != fsm.StateErrored {
		_ = c.transition(fsm.EventFail)
	}
	if c.state == fsm.StateErrored {
		_ = c.transition(fsm.EventReset)
	}
	c.indicator.Hide(c.runCtx)
	c.publish()
}

func (c *Controller) stopWork() {
	if c.attempt != 0 {
		c.capture.Stop()
		c.attempt = 0
	}
	if c.cancelInference != nil {
		c.cancelInference()
		c.cancelInference = nil
	}
	if c.utterance != 0 && c.playback != nil {
		c.playback.Cancel()
		c.utterance = 0
	}
}

func (c *Controller) shutdown() {
	c.stopWork()
	cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.indicator.Hide(cleanupCtx)
	c.logger.Info("session stopped", "state", string(c.state))
}

func (c *Controller) transition(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		c.logger.Error("state transition rejected", "state", string(c.state), "event", string(event), "error", err.Error())
		return err
	}
	c.logger.Debug("state transition", "state", string(next), "from", string(c.state), "event", string(event))
	c.state = next
	return nil
}

func (c *Controller) hasPending() bool {
	_, pending := c.store.Pending()
	return pending
}

func (c *Controller) project() View {
	return View{
		State:                c.state,
		Status:               StatusText(c.state),
		ErrorMessage:         c.errorMessage,
		Transcript:           c.store.Snapshot(),
		InputLocked:          !fsm.AcceptsInput(c.state) || c.hasPending(),
		CredentialConfigured: c.credential != "",
	}
}

// publish stores a fresh View and notifies observers.
func (c *Controller) publish() {
	view := c.project()

	c.mu.Lock()
	c.view = view
	observers := make([]func(View), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(view)
	}
}
