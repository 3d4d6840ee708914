package services

import (
	"context"
	"sync"
	"time"

	"prefill/application/ports"
	"prefill/domain/config"
	"prefill/domain/core/aggregates"
	"prefill/domain/events"
	"prefill/domain/session"
	"prefill/domain/versioning"
	pkgerrors "prefill/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionObserver receives session lifecycle and transition notifications
type SessionObserver interface {
	ObserveTransition(name string, applied bool)
	SessionOpened()
	SessionClosed()
}

// Transition is one state machine operation run against a session
type Transition func(*session.Session) session.Outcome

// CreateSessionInput describes a new session
type CreateSessionInput struct {
	SessionID   string
	TenantID    string
	BlueprintID string
	// RestoreFrom seeds the session with the latest snapshot of another session
	RestoreFrom string
}

type sessionEntry struct {
	mu         sync.Mutex
	id         string
	key        aggregates.GraphKey
	session    *session.Session
	future     *GraphFuture
	graph      *aggregates.Graph
	loadErr    error
	lastAccess time.Time
}

// SessionService owns the live mapping sessions. Calls against one session are
// serialized; different sessions proceed in parallel.
type SessionService struct {
	loader    *GraphLoader
	store     ports.MappingStore
	publisher ports.EventPublisher
	cfg       *config.DomainConfig
	logger    *zap.Logger
	observer  SessionObserver
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionService creates a new session service
func NewSessionService(
	loader *GraphLoader,
	store ports.MappingStore,
	publisher ports.EventPublisher,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *SessionService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &SessionService{
		loader:    loader,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*sessionEntry),
	}
}

// WithObserver sets the session observer
func (s *SessionService) WithObserver(o SessionObserver) *SessionService {
	s.observer = o
	return s
}

// CreateSession registers a new session and starts loading its graph
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (string, error) {
	if in.TenantID == "" || in.BlueprintID == "" {
		return "", pkgerrors.NewValidationError("tenant id and blueprint id are required")
	}
	id := in.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	key := aggregates.GraphKey{TenantID: in.TenantID, BlueprintID: in.BlueprintID}

	sess, err := s.newSession(ctx, key, in.RestoreFrom)
	if err != nil {
		return "", err
	}

	entry := &sessionEntry{
		id:         id,
		key:        key,
		session:    sess,
		future:     s.loader.Load(ctx, key),
		lastAccess: s.now(),
	}

	s.mu.Lock()
	if _, exists := s.sessions[id]; exists {
		s.mu.Unlock()
		return "", pkgerrors.NewValidationError("session already exists").WithCode("SESSION_EXISTS")
	}
	s.sessions[id] = entry
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.SessionOpened()
	}
	s.logger.Info("Session created",
		zap.String("sessionID", id),
		zap.String("tenantID", key.TenantID),
		zap.String("blueprintID", key.BlueprintID),
		zap.Int("restoredMappings", len(sess.Mappings())),
	)
	s.publish(ctx, events.NewSessionStarted(id, key.TenantID, key.BlueprintID, s.now()))

	return id, nil
}

func (s *SessionService) newSession(ctx context.Context, key aggregates.GraphKey, restoreFrom string) (*session.Session, error) {
	if restoreFrom == "" {
		return session.New(s.cfg), nil
	}
	if s.store == nil {
		return nil, pkgerrors.NewValidationError("session restore is not available")
	}
	snapshot, err := s.store.Load(ctx, restoreFrom)
	if err != nil {
		return nil, err
	}
	if snapshot.TenantID != key.TenantID || snapshot.BlueprintID != key.BlueprintID {
		return nil, pkgerrors.NewValidationError("restored session belongs to a different blueprint")
	}
	restored := session.Restore(s.cfg, snapshot.Mappings)
	if kept := len(restored.Mappings()); kept < len(snapshot.Mappings) {
		s.logger.Warn("Restored session dropped mappings",
			zap.String("restoreFrom", restoreFrom),
			zap.Int("kept", kept),
			zap.Int("stored", len(snapshot.Mappings)))
	}
	return restored, nil
}

// Apply runs a transition against a session and returns the resulting view.
// A transition that does not apply is not an error.
func (s *SessionService) Apply(ctx context.Context, sessionID, name string, transition Transition) (*SessionView, session.Outcome, error) {
	e, err := s.get(sessionID)
	if err != nil {
		return nil, session.Outcome{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.attach(ctx, e)
	out := transition(e.session)
	e.lastAccess = s.now()

	if s.observer != nil {
		s.observer.ObserveTransition(name, out.Applied)
	}
	if out.Applied && out.MappingsChanged() {
		s.persist(ctx, e, out)
	}

	return buildSessionView(e), out, nil
}

// View returns the read model of a session
func (s *SessionService) View(ctx context.Context, sessionID string) (*SessionView, error) {
	e, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.attach(ctx, e)
	e.lastAccess = s.now()
	return buildSessionView(e), nil
}

// Canvas returns the projected graph of a session. A failed load returns the
// error of the graph source as is.
func (s *SessionService) Canvas(ctx context.Context, sessionID string) (*CanvasView, error) {
	e, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s.attach(ctx, e)
	e.lastAccess = s.now()
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return buildCanvasView(e.graph), nil
}

// AwaitGraph blocks until the graph of a session finished loading or ctx is done
func (s *SessionService) AwaitGraph(ctx context.Context, sessionID string) error {
	e, err := s.get(sessionID)
	if err != nil {
		return err
	}
	if _, err := e.future.Wait(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	s.attach(ctx, e)
	e.mu.Unlock()
	return nil
}

// DeleteSession discards a session. Stored snapshots are kept.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return pkgerrors.NewNotFoundError("session")
	}
	if s.observer != nil {
		s.observer.SessionClosed()
	}
	s.logger.Info("Session deleted", zap.String("sessionID", sessionID))
	return nil
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle discards sessions not used since SessionTimeout before now
func (s *SessionService) ExpireIdle(now time.Time) int {
	if s.cfg.SessionTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.SessionTimeout)

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.lastAccess.Before(cutoff)
		e.mu.Unlock()
		if idle {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for range expired {
		if s.observer != nil {
			s.observer.SessionClosed()
		}
	}
	if len(expired) > 0 {
		s.logger.Info("Expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdle(s.now())
		}
	}
}

func (s *SessionService) get(sessionID string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	return e, nil
}

// attach hands a resolved graph to the session once. Caller holds e.mu.
func (s *SessionService) attach(ctx context.Context, e *sessionEntry) {
	if e.graph != nil || e.loadErr != nil {
		return
	}
	g, err, ready := e.future.Result()
	if !ready {
		return
	}
	if err != nil {
		e.loadErr = err
		return
	}

	e.graph = g
	e.session.Attach(g.Index())
	s.publish(ctx, events.NewGraphLoaded(e.id, g.NodeCount(), g.EdgeCount(), s.now()))
}

// persist publishes the mapping change and saves a snapshot. Failures are
// logged; the in-memory change stands.
func (s *SessionService) persist(ctx context.Context, e *sessionEntry, out session.Outcome) {
	now := s.now()
	mappings := e.session.Mappings()
	version := versioning.NewMappingVersion(e.id, e.session.Revision(), mappings, now)

	switch {
	case out.Committed != nil:
		s.publish(ctx, events.NewMappingCommitted(e.id, *out.Committed, version.Version, now))
	case out.Removed != nil:
		s.publish(ctx, events.NewMappingRemoved(e.id, *out.Removed, version.Version, now))
	}

	if s.store == nil {
		return
	}
	snapshot := ports.MappingSnapshot{
		SessionID:   e.id,
		TenantID:    e.key.TenantID,
		BlueprintID: e.key.BlueprintID,
		Version:     version.Version,
		Checksum:    version.Checksum,
		Mappings:    mappings,
		SavedAt:     now,
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Warn("Failed to save mapping snapshot",
			zap.String("sessionID", e.id),
			zap.Int("version", version.Version),
			zap.Error(err),
		)
	}
}

func (s *SessionService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("aggregateID", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}
