package mentor_module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/ethanbaker/mentor/internal/engine"
	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/mentor"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrViewNotFound is returned for unknown or already closed views
var ErrViewNotFound = errors.New("view not found")

// View is one open chat surface backed by its own engine
type View struct {
	ID      string
	Owner   string
	Context conversation.Context
	Engine  *engine.Engine

	lastSeen time.Time // Guarded by Service.mu
}

// ResponderFactory builds the responder for a mentor context
type ResponderFactory func(ct conversation.ContextType, profile mentor.Profile) (mentor.Responder, error)

// Service owns the open views, their engines and the idle view reaper
type Service struct {
	store        conversation.Store
	profiles     *mentor.Profiles
	newResponder ResponderFactory
	logger       *slog.Logger

	debounce     time.Duration
	storeTimeout time.Duration
	replyTimeout time.Duration
	idleTimeout  time.Duration
	historyLimit int
	reapSchedule string

	// Concurrency
	mu         sync.Mutex
	views      map[string]*View
	responders map[conversation.ContextType]mentor.Responder
	ctx        context.Context
	cancel     context.CancelFunc

	cron *cron.Cron
	now  func() time.Time
}

// ServiceOptions contains collaborators for a Service. Nil fields get production defaults.
type ServiceOptions struct {
	Store        conversation.Store
	Profiles     *mentor.Profiles
	NewResponder ResponderFactory
	Logger       *slog.Logger
}

// NewService creates the view service from configuration
func NewService(cfg *utils.Config, opts ServiceOptions) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("a valid store must be provided")
	}

	if opts.Profiles == nil {
		profiles, err := mentor.LoadProfiles(cfg.Get("MENTOR_PROFILES_PATH"))
		if err != nil {
			return nil, fmt.Errorf("failed to load mentor profiles: %w", err)
		}
		opts.Profiles = profiles
	}
	if opts.NewResponder == nil {
		opts.NewResponder = func(ct conversation.ContextType, profile mentor.Profile) (mentor.Responder, error) {
			return mentor.NewResponder(cfg, ct, profile)
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		store:        opts.Store,
		profiles:     opts.Profiles,
		newResponder: opts.NewResponder,
		logger:       opts.Logger.With("component", "mentor-views"),

		debounce:     cfg.GetDurationWithDefault("PERSIST_DEBOUNCE", engine.DefaultDebounce),
		storeTimeout: cfg.GetDurationWithDefault("STORE_TIMEOUT", engine.DefaultStoreTimeout),
		replyTimeout: cfg.GetDurationWithDefault("REPLY_TIMEOUT", engine.DefaultReplyTimeout),
		idleTimeout:  cfg.GetDurationWithDefault("VIEW_IDLE_TIMEOUT", 30*time.Minute),
		historyLimit: cfg.GetIntWithDefault("HISTORY_LIMIT", conversation.DefaultHistoryLimit),
		reapSchedule: cfg.GetWithDefault("VIEW_REAP_SCHEDULE", "@every 1m"),

		views:      make(map[string]*View),
		responders: make(map[conversation.ContextType]mentor.Responder),
		ctx:        ctx,
		cancel:     cancel,
		cron:       cron.New(),
		now:        time.Now,
	}, nil
}

// Start schedules the idle view reaper
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.reapSchedule, func() { s.ReapIdle() }); err != nil {
		return fmt.Errorf("invalid VIEW_REAP_SCHEDULE %q: %w", s.reapSchedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the reaper and detaches every open view
func (s *Service) Stop() {
	<-s.cron.Stop().Done()

	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*View)
	s.mu.Unlock()

	for _, v := range views {
		v.Engine.Detach()
	}
	s.cancel()
}

// Open creates a view for owner and context and attaches its engine
func (s *Service) Open(owner string, c conversation.Context, params map[string]any) (*View, error) {
	profile := s.profiles.For(c.Type)

	responder, err := s.responder(c.Type, profile)
	if err != nil {
		return nil, err
	}

	params = maps.Clone(params)
	if params == nil {
		params = map[string]any{}
	}
	if c.ID != "" {
		if _, ok := params["context_id"]; !ok {
			params["context_id"] = c.ID
		}
	}

	e, err := engine.New(engine.Options{
		Owner:        owner,
		Context:      c,
		Store:        s.store,
		Responder:    responder,
		Greeting:     profile.Greeting,
		Fallback:     profile.Fallback,
		Params:       params,
		Debounce:     s.debounce,
		StoreTimeout: s.storeTimeout,
		ReplyTimeout: s.replyTimeout,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, err
	}

	v := &View{
		ID:       uuid.New().String(),
		Owner:    owner,
		Context:  c,
		Engine:   e,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.views[v.ID] = v
	s.mu.Unlock()

	e.Attach(s.ctx)
	s.logger.Info("opened view", "view_id", v.ID, "owner", owner, "context", c.String())

	return v, nil
}

// View returns an open view and marks it as recently used
func (s *Service) View(id string) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[id]
	if !ok {
		return nil, ErrViewNotFound
	}
	v.lastSeen = s.now()
	return v, nil
}

// Close detaches and forgets a view
func (s *Service) Close(id string) error {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()

	if !ok {
		return ErrViewNotFound
	}

	v.Engine.Detach()
	s.logger.Info("closed view", "view_id", id)
	return nil
}

// ReapIdle closes views that haven't been used within the idle timeout and returns how many were closed
func (s *Service) ReapIdle() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var idle []*View
	for id, v := range s.views {
		if v.lastSeen.Before(cutoff) {
			idle = append(idle, v)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, v := range idle {
		v.Engine.Detach()
	}
	if len(idle) > 0 {
		s.logger.Info("reaped idle views", "count", len(idle))
	}

	return len(idle)
}

// HistoryLimit returns the configured default page size for history listings
func (s *Service) HistoryLimit() int {
	return s.historyLimit
}

// responder returns the cached responder for a context type, building it on first use
func (s *Service) responder(ct conversation.ContextType, profile mentor.Profile) (mentor.Responder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.responders[ct]; ok {
		return r, nil
	}

	r, err := s.newResponder(ct, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create responder for %s: %w", ct, err)
	}
	s.responders[ct] = r

	return r, nil
}
