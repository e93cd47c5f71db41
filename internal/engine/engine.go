// Package engine keeps a mentor chat transcript, its in-flight replies and its stored
// conversation record consistent with each other.
//
// Ordering and staleness are decided by two values owned by each Engine: a save token that
// increases on every change worth persisting, and a liveness flag that drops to false when the
// consuming view is detached. Every asynchronous completion (history load, reply, persist)
// re-checks both before touching state; the mutex only guards memory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/mentor"
)

var (
	// ErrDetached is returned by operations on an engine that is not attached to a view
	ErrDetached = errors.New("engine is not attached")

	// ErrEmptyMessage is returned by Send for blank input
	ErrEmptyMessage = errors.New("message is empty")
)

const (
	DefaultDebounce     = 2 * time.Second
	DefaultStoreTimeout = 10 * time.Second
	DefaultReplyTimeout = 60 * time.Second
)

// Options configures an Engine
type Options struct {
	Owner     string
	Context   conversation.Context
	Store     conversation.Store
	Responder mentor.Responder

	Greeting string         // Seed turn shown when there is no history; empty for none
	Fallback string         // Assistant text appended when a reply fails
	Params   map[string]any // Free-form parameters passed to every reply request

	Debounce     time.Duration
	StoreTimeout time.Duration
	ReplyTimeout time.Duration

	Logger   *slog.Logger
	OnChange func() // Called after every applied change, outside the engine lock
}

// Snapshot is a consistent copy of the engine state for rendering
type Snapshot struct {
	Transcript     []conversation.Turn `json:"transcript"`
	ReplyPending   bool                `json:"reply_pending"`
	ConversationID string              `json:"conversation_id,omitempty"`
	State          State               `json:"state"`
}

// Engine synchronizes one open conversation view with the store and the responder
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	transcript []conversation.Turn
	recordID   string // Adopted record id, empty while unsaved
	token      uint64 // Live save token
	saved      uint64 // Token of the last persisted or freshly loaded content
	epoch      uint64 // Bumped when the transcript is replaced wholesale
	attached   bool
	alive      bool // Liveness flag
	loading    bool
	replies    int  // Replies in flight for the current epoch
	persists   int  // Upserts in flight, at most one
	deferred   bool // A timer fired while a persist was in flight
	timer      *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine in the uninitialized state, showing only the greeting
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("a conversation store must be provided")
	}
	if opts.Responder == nil {
		return nil, errors.New("a responder must be provided")
	}
	if opts.Owner == "" {
		return nil, errors.New("owner cannot be empty")
	}
	if opts.Context.Type == "" {
		return nil, errors.New("context type cannot be empty")
	}

	if opts.Fallback == "" {
		opts.Fallback = mentor.DefaultFallback
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		opts:   opts,
		logger: opts.Logger.With("component", "engine", "owner", opts.Owner, "context", opts.Context.String()),
	}
	e.transcript = e.seed()

	return e, nil
}

// Attach marks the view active and starts loading the most recent conversation. Only the
// first call has an effect; an engine can't be re-attached after Detach.
func (e *Engine) Attach(ctx context.Context) {
	e.mu.Lock()
	if e.attached {
		e.mu.Unlock()
		return
	}

	e.attached = true
	e.alive = true
	e.loading = true
	e.ctx, e.cancel = context.WithCancel(ctx)
	token, epoch := e.token, e.epoch
	e.mu.Unlock()

	e.logger.Debug("attached, loading most recent conversation")
	go e.load(token, epoch)
}

// Detach marks the view as gone. Anything that completes afterwards is dropped. Safe to call repeatedly.
func (e *Engine) Detach() {
	e.mu.Lock()
	if !e.attached {
		e.attached = true
	} else if !e.alive {
		e.mu.Unlock()
		return
	}

	e.alive = false
	e.stopTimer()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.logger.Debug("detached")
}

// Send appends a user turn and asks the responder for a reply in the background. The user turn
// is in the transcript when Send returns.
func (e *Engine) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return ErrDetached
	}

	history := conversation.CloneTurns(e.transcript)
	e.transcript = append(e.transcript, conversation.NewTurn(conversation.RoleUser, text))
	e.replies++
	epoch := e.epoch
	e.touch()
	e.mu.Unlock()

	e.notify()
	go e.reply(history, text, epoch)

	return nil
}

// StartNew resets the transcript to the greeting and forgets the adopted record, so the next
// persist creates a new record
func (e *Engine) StartNew() error {
	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return ErrDetached
	}

	e.replaceTranscript(e.seed(), "")
	e.mu.Unlock()

	e.logger.Debug("started new conversation")
	e.notify()
	return nil
}

// History lists past conversations of this owner and context, newest first. It doesn't change engine state.
func (e *Engine) History(ctx context.Context, limit int) ([]*conversation.Record, error) {
	if !e.isAlive() {
		return nil, ErrDetached
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	c := e.opts.Context
	return e.opts.Store.ListHistory(ctx, e.opts.Owner, &c, limit)
}

// Resume replaces the transcript with a stored conversation and adopts its id. The loaded
// content becomes the persisted baseline, so it is not saved again until it changes.
func (e *Engine) Resume(ctx context.Context, id string) error {
	if !e.isAlive() {
		return ErrDetached
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	rec, err := e.opts.Store.Get(ctx, id, e.opts.Owner)
	if err != nil {
		return err
	}
	if rec.Context != e.opts.Context {
		return fmt.Errorf("%w: conversation %s belongs to %s", conversation.ErrNotFound, id, rec.Context)
	}

	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return ErrDetached
	}

	turns := conversation.CloneTurns(rec.Messages)
	if len(turns) == 0 {
		turns = e.seed()
	}
	e.replaceTranscript(turns, rec.ID)
	e.mu.Unlock()

	e.logger.Debug("resumed conversation", "conversation_id", rec.ID, "turns", len(turns))
	e.notify()
	return nil
}

// Delete removes one of the owner's conversations. Deleting the open conversation starts a new one.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if !e.isAlive() {
		return ErrDetached
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	if err := e.opts.Store.Delete(ctx, id, e.opts.Owner); err != nil {
		return err
	}

	e.mu.Lock()
	changed := e.alive && e.recordID == id
	if changed {
		e.replaceTranscript(e.seed(), "")
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return nil
}

// Transcript returns a copy of the current transcript
func (e *Engine) Transcript() []conversation.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return conversation.CloneTurns(e.transcript)
}

// ReplyPending reports whether a reply for the current conversation is outstanding
func (e *Engine) ReplyPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.replies > 0
}

// ConversationID returns the adopted record id, or an empty string while unsaved
func (e *Engine) ConversationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordID
}

// State returns the dominant state of the engine
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

// Snapshot returns transcript, reply indicator, record id and state read atomically
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Transcript:     conversation.CloneTurns(e.transcript),
		ReplyPending:   e.replies > 0,
		ConversationID: e.recordID,
		State:          e.state(),
	}
}

/** Background operations **/

// load restores the most recent conversation unless the view moved on while it was in flight
func (e *Engine) load(token, epoch uint64) {
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.StoreTimeout)
	rec, err := e.loadMostRecent(ctx)
	cancel()

	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return
	}
	if epoch != e.epoch {
		// StartNew or Resume already replaced the transcript
		e.mu.Unlock()
		return
	}
	e.loading = false

	switch {
	case err != nil:
		e.logger.Warn("history load failed, starting from greeting", "error", err)
		e.rearm()

	case rec == nil:
		e.logger.Debug("no history, starting from greeting")
		e.rearm()

	case e.token == token:
		if len(rec.Messages) > 0 {
			e.transcript = conversation.CloneTurns(rec.Messages)
		}
		e.recordID = rec.ID
		e.resetBaseline()

	default:
		// The user sent messages while history was loading; keep them after the restored turns
		local := e.transcript
		if e.opts.Greeting != "" && len(local) > 0 {
			local = local[1:]
		}
		e.transcript = append(conversation.CloneTurns(rec.Messages), local...)
		e.recordID = rec.ID
		e.touch()
	}
	e.mu.Unlock()

	e.notify()
}

// reply waits for the responder and appends exactly one assistant turn
func (e *Engine) reply(history []conversation.Turn, input string, epoch uint64) {
	ctx, cancel := context.WithTimeout(e.ctx, e.opts.ReplyTimeout)
	text, err := e.respond(ctx, history, input)
	cancel()

	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		return
	}
	e.replies--
	if !e.alive {
		e.mu.Unlock()
		return
	}

	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		e.logger.Warn("reply failed, using fallback", "error", err)
		text = e.opts.Fallback
	}

	e.transcript = append(e.transcript, conversation.NewTurn(conversation.RoleAssistant, text))
	e.touch()
	e.mu.Unlock()

	e.notify()
}

// persist runs when the debounce timer armed for scheduled fires. Only one upsert runs at a
// time; a timer that fires during a save is deferred until that save lands.
func (e *Engine) persist(scheduled uint64) {
	e.mu.Lock()
	if !e.alive || scheduled != e.token {
		e.mu.Unlock()
		return
	}
	if e.loading {
		// The record id isn't known yet; load re-arms the timer when it lands
		e.mu.Unlock()
		return
	}

	e.timer = nil
	if e.persists > 0 {
		e.deferred = true
		e.mu.Unlock()
		return
	}

	snapshot, epoch := e.token, e.epoch
	messages := conversation.CloneTurns(e.transcript)
	existingID := e.recordID
	e.persists++
	e.mu.Unlock()

	e.notify()

	// A save that already started is allowed to finish after the view detaches
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), e.opts.StoreTimeout)
	rec, err := e.upsert(ctx, messages, existingID)
	cancel()

	e.mu.Lock()
	e.persists--
	if !e.alive {
		e.mu.Unlock()
		return
	}

	// Same conversation and nobody swapped the record underneath this save
	current := epoch == e.epoch && e.recordID == existingID

	switch {
	case err != nil:
		e.logger.Warn("persist failed, will retry on next change", "error", err, "token", snapshot)

		// The record is gone; recreate it on the next save
		if errors.Is(err, conversation.ErrNotFound) && current {
			e.recordID = ""
		}

	case !current:
		e.logger.Debug("discarding persist for replaced conversation", "token", snapshot, "record_id", rec.ID)

	default:
		// The record holds this conversation even when newer turns arrived meanwhile
		e.recordID = rec.ID
		if snapshot == e.token {
			e.saved = snapshot
		} else {
			e.logger.Debug("persisted content is stale", "token", snapshot, "live_token", e.token)
		}
	}

	if e.deferred {
		e.deferred = false
		e.rearm()
	}
	e.mu.Unlock()

	e.notify()
}

/** Helpers, called with e.mu held unless noted **/

// touch records a change worth persisting and re-arms the debounce timer
func (e *Engine) touch() {
	e.token++
	if len(e.transcript) <= 1 {
		return
	}

	e.stopTimer()
	scheduled := e.token
	e.timer = time.AfterFunc(e.opts.Debounce, func() { e.persist(scheduled) })
}

// rearm schedules a persist for changes made while loading
func (e *Engine) rearm() {
	if e.token != e.saved {
		e.touch()
	}
}

// resetBaseline treats the current transcript as already persisted
func (e *Engine) resetBaseline() {
	e.token++
	e.saved = e.token
	e.stopTimer()
}

// replaceTranscript swaps in a whole conversation, dropping in-flight replies and loads
func (e *Engine) replaceTranscript(turns []conversation.Turn, recordID string) {
	e.transcript = turns
	e.recordID = recordID
	e.epoch++
	e.replies = 0
	e.loading = false
	e.resetBaseline()
}

func (e *Engine) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) seed() []conversation.Turn {
	if e.opts.Greeting == "" {
		return []conversation.Turn{}
	}
	return []conversation.Turn{conversation.NewTurn(conversation.RoleAssistant, e.opts.Greeting)}
}

func (e *Engine) state() State {
	switch {
	case e.attached && !e.alive:
		return StateDetached
	case !e.attached || e.loading:
		return StateUninitialized
	case e.replies > 0:
		return StateAwaitingReply
	case e.persists > 0:
		return StatePersisting
	case e.timer != nil:
		return StatePendingPersist
	default:
		return StateIdle
	}
}

// isAlive reads the liveness flag. Must not be called with e.mu held.
func (e *Engine) isAlive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive
}

// notify calls OnChange. Must not be called with e.mu held.
func (e *Engine) notify() {
	if e.opts.OnChange != nil {
		e.opts.OnChange()
	}
}

/** Collaborator calls. A panic in a collaborator becomes an error. **/

func (e *Engine) loadMostRecent(ctx context.Context) (rec *conversation.Record, err error) {
	defer recoverInto(&err)
	return e.opts.Store.LoadMostRecent(ctx, e.opts.Owner, e.opts.Context)
}

func (e *Engine) upsert(ctx context.Context, messages []conversation.Turn, existingID string) (rec *conversation.Record, err error) {
	defer recoverInto(&err)
	rec, err = e.opts.Store.Upsert(ctx, e.opts.Owner, e.opts.Context, messages, existingID)
	if err == nil && rec == nil {
		err = errors.New("store returned no record")
	}
	return rec, err
}

func (e *Engine) respond(ctx context.Context, history []conversation.Turn, input string) (text string, err error) {
	defer recoverInto(&err)
	return e.opts.Responder.Respond(ctx, history, input, e.opts.Params)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("collaborator panicked: %v", r)
	}
}
