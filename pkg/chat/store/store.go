// Package store owns the in-memory session list of one owner and keeps the
// chosen persistence backend converging towards it.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/persistence"
	"tarik-chat-be/pkg/chat/sanitize"

	"github.com/google/uuid"
)

const module = "SESSION_STORE"

// Notifier receives user-facing toasts.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification)
}

type Options struct {
	// KeyValues backs local mode and the active session pointer.
	KeyValues contract.KeyValueRepository
	// Documents enables remote mode for stores initialised with an owner.
	Documents    contract.SessionDocumentRepository
	Limits       sanitize.Limits
	Logger       logger.ILogger
	Notifier     Notifier
	Clock        func() entity.Instant
	NewID        func() string
	WriteTimeout time.Duration
}

type Store struct {
	opts Options

	mu       sync.Mutex
	ready    bool
	ownerID  string
	state    State
	backend  persistence.Backend
	queue    *writeQueue
	lastTick entity.Instant
}

func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = entity.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}
	return &Store{opts: opts}
}

// Init loads ownerID's sessions. A non-empty owner with a document
// repository configured selects remote persistence, anything else local.
// Calling Init again disposes the previous owner first.
func (s *Store) Init(ctx context.Context, ownerID string) error {
	s.Dispose()

	if s.opts.KeyValues == nil && (ownerID == "" || s.opts.Documents == nil) {
		return chaterr.ErrStoreUnavailable
	}

	var backend persistence.Backend
	if ownerID != "" && s.opts.Documents != nil {
		backend = persistence.NewRemoteBackend(
			persistence.NewRemoteAdapter(s.opts.Documents, s.opts.Limits),
			ownerID, s.opts.KeyValues, s.opts.Logger,
		)
	} else {
		backend = persistence.NewLocalBackend(
			persistence.NewLocalAdapter(s.opts.KeyValues, ownerID, s.opts.Limits, s.opts.Logger),
		)
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		s.opts.Logger.Error(module, "Failed to load sessions", map[string]interface{}{"owner_id": ownerID, "error": err.Error()})
		return errors.Join(chaterr.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ownerID = ownerID
	s.backend = backend
	s.state = normalize(State{Sessions: snap.Sessions, ActiveID: snap.ActiveID})
	s.lastTick = 0
	for _, sess := range s.state.Sessions {
		if sess.UpdatedAt > s.lastTick {
			s.lastTick = sess.UpdatedAt
		}
	}
	s.queue = newWriteQueue(s.writer(backend, ownerID))

	if len(s.state.Sessions) == 0 {
		created, err := backend.Create(ctx, newSession(s.opts.NewID(), constant.DefaultSessionName, s.tickLocked()))
		if err != nil {
			s.queue.close(0)
			s.queue = nil
			s.backend = nil
			s.opts.Logger.Error(module, "Failed to create default session", map[string]interface{}{"owner_id": ownerID, "error": err.Error()})
			return errors.Join(chaterr.ErrStoreUnavailable, err)
		}
		s.commitLocked(ctx, applyCreate(s.state, created), persistence.Change{Kind: persistence.ChangeCreate, SessionID: created.Id})
	}

	s.ready = true
	s.opts.Logger.Info(module, "Session store ready", map[string]interface{}{
		"owner_id": ownerID,
		"remote":   backend.Remote(),
		"sessions": len(s.state.Sessions),
	})
	return nil
}

// Dispose drops the in-memory state after queued writes were attempted.
func (s *Store) Dispose() {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return
	}
	q := s.queue
	owner := s.ownerID
	s.ready = false
	s.queue = nil
	s.backend = nil
	s.state = State{}
	s.ownerID = ""
	s.mu.Unlock()

	q.close(s.opts.WriteTimeout)
	s.opts.Logger.Debug(module, "Session store disposed", map[string]interface{}{"owner_id": owner})
}

func (s *Store) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerID
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Store) Remote() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend != nil && s.backend.Remote()
}

// ListSessions returns copies ordered by UpdatedAt, newest first.
func (s *Store) ListSessions() []entity.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ChatSession, len(s.state.Sessions))
	for i, sess := range s.state.Sessions {
		out[i] = sess.Clone()
	}
	return out
}

func (s *Store) ActiveSession() (entity.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.state.Active()
	if !ok {
		return entity.ChatSession{}, false
	}
	return sess.Clone(), true
}

func (s *Store) Session(id string) (entity.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.state.index(id); i >= 0 {
		return s.state.Sessions[i].Clone(), true
	}
	return entity.ChatSession{}, false
}

// CreateSession waits for the backend to assign the id, then inserts the
// session at the head and makes it active.
func (s *Store) CreateSession(ctx context.Context, name string) (entity.ChatSession, *Pending, error) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return entity.ChatSession{}, nil, chaterr.ErrStoreUnavailable
	}
	backend := s.backend
	draft := newSession(s.opts.NewID(), sessionName(name), s.tickLocked())
	s.mu.Unlock()

	created, err := backend.Create(ctx, draft)
	if err != nil {
		s.reportCreateFailure(ctx, err)
		return entity.ChatSession{}, nil, errors.Join(chaterr.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready || s.backend != backend {
		return entity.ChatSession{}, nil, chaterr.ErrStoreUnavailable
	}
	p := s.commitLocked(ctx, applyCreate(s.state, created), persistence.Change{Kind: persistence.ChangeCreate, SessionID: created.Id})
	s.opts.Logger.Info(module, "Session created", map[string]interface{}{"owner_id": s.ownerID, "session_id": created.Id})
	return created.Clone(), p, nil
}

// SwitchSession moves the active pointer. UpdatedAt is left alone.
func (s *Store) SwitchSession(ctx context.Context, id string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	if s.state.ActiveID == id && s.state.index(id) >= 0 {
		return resolvedPending(nil), nil
	}
	next, err := applySwitch(s.state, id)
	if err != nil {
		return nil, err
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeSwitch, SessionID: id}), nil
}

func (s *Store) RenameSession(ctx context.Context, id, name string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	if strings.TrimSpace(name) == "" {
		return nil, chaterr.Validation("session name is empty")
	}
	if s.state.index(id) < 0 {
		return nil, chaterr.ErrNotFound
	}
	next, err := applyRename(s.state, id, name, s.tickLocked())
	if err != nil {
		return nil, err
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeRename, SessionID: id}), nil
}

// DeleteSession removes id. Deleting the last session replaces it with a
// fresh default session, created on the backend before anything changes.
// The fallback decision and the commit happen under one lock hold.
func (s *Store) DeleteSession(ctx context.Context, id string) (*Pending, error) {
	var (
		backend  persistence.Backend
		fallback *entity.ChatSession
	)
	s.mu.Lock()
	for {
		if !s.ready || (backend != nil && s.backend != backend) {
			s.mu.Unlock()
			return nil, chaterr.ErrStoreUnavailable
		}
		if s.state.index(id) < 0 {
			if fallback != nil {
				s.commitLocked(ctx, s.state, persistence.Change{Kind: persistence.ChangeDelete, SessionID: fallback.Id})
			}
			s.mu.Unlock()
			return nil, chaterr.ErrNotFound
		}
		if fallback != nil || len(s.state.Sessions) > 1 {
			break
		}

		backend = s.backend
		draft := newSession(s.opts.NewID(), constant.DefaultSessionName, s.tickLocked())
		s.mu.Unlock()

		created, err := backend.Create(ctx, draft)
		if err != nil {
			s.reportCreateFailure(ctx, err)
			return nil, errors.Join(chaterr.ErrStoreUnavailable, err)
		}
		fallback = &created
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	next, used, err := applyDelete(s.state, id, fallback)
	if err != nil {
		return nil, err
	}

	p := s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeDelete, SessionID: id})
	if fallback != nil && !used {
		p = s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeDelete, SessionID: fallback.Id})
	}
	s.opts.Logger.Info(module, "Session deleted", map[string]interface{}{"owner_id": s.ownerID, "session_id": id, "active_id": next.ActiveID})
	return p, nil
}

// AddMessage appends msg. An unknown session is a silent no-op.
func (s *Store) AddMessage(ctx context.Context, sessionID string, msg entity.ChatMessage) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	if msg.Id == "" {
		msg.Id = s.opts.NewID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.opts.Clock()
	}
	next, ok := applyAddMessage(s.state, sessionID, msg, s.tickLocked())
	if !ok {
		return resolvedPending(nil), nil
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeMessages, SessionID: sessionID}), nil
}

// InsertMessageAfter places msg directly after afterID in the session, or
// appends it when afterID is gone.
func (s *Store) InsertMessageAfter(ctx context.Context, sessionID, afterID string, msg entity.ChatMessage) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	if msg.Id == "" {
		msg.Id = s.opts.NewID()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.opts.Clock()
	}
	next, ok := applyInsertAfter(s.state, sessionID, afterID, msg, s.tickLocked())
	if !ok {
		return resolvedPending(nil), nil
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeMessages, SessionID: sessionID}), nil
}

// UpdateMessage merges patch into one message. Unknown ids are a silent no-op.
func (s *Store) UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.MessagePatch) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	next, ok := applyUpdateMessage(s.state, sessionID, messageID, patch, s.tickLocked())
	if !ok {
		return resolvedPending(nil), nil
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeMessages, SessionID: sessionID}), nil
}

func (s *Store) ClearMessages(ctx context.Context, sessionID string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, chaterr.ErrStoreUnavailable
	}
	next, ok := applyClear(s.state, sessionID, s.tickLocked())
	if !ok {
		return resolvedPending(nil), nil
	}
	return s.commitLocked(ctx, next, persistence.Change{Kind: persistence.ChangeMessages, SessionID: sessionID}), nil
}

// Flush returns once every write queued before the call was attempted.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil
	}
	p := newPending()
	ok := s.queue.enqueue(writeJob{barrier: true, pending: p})
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return p.Wait(ctx)
}

// commitLocked swaps in next and queues its write. Caller holds s.mu, which
// keeps queue order equal to state order.
func (s *Store) commitLocked(ctx context.Context, next State, change persistence.Change) *Pending {
	s.state = next
	p := newPending()
	job := writeJob{
		ctx:     context.WithoutCancel(ctx),
		snap:    persistence.Snapshot{Sessions: next.Sessions, ActiveID: next.ActiveID},
		change:  change,
		pending: p,
	}
	if !s.queue.enqueue(job) {
		p.resolve(chaterr.ErrStoreUnavailable)
	}
	return p
}

// tickLocked returns a strictly increasing instant so the latest mutation
// always sorts first.
func (s *Store) tickLocked() entity.Instant {
	now := s.opts.Clock()
	if now <= s.lastTick {
		now = s.lastTick + 1
	}
	s.lastTick = now
	return now
}

func (s *Store) writer(backend persistence.Backend, ownerID string) func(job writeJob) error {
	return func(job writeJob) error {
		ctx, cancel := context.WithTimeout(job.ctx, s.opts.WriteTimeout)
		defer cancel()

		err := backend.Write(ctx, job.snap, job.change)
		if err == nil {
			return nil
		}

		s.opts.Logger.Error(module, "Persistence write failed", map[string]interface{}{
			"owner_id":   ownerID,
			"change":     job.change.Kind.String(),
			"session_id": job.change.SessionID,
			"error":      err,
		})
		s.notify(ctx, ownerID, err)
		return err
	}
}

func (s *Store) notify(ctx context.Context, ownerID string, err error) {
	if s.opts.Notifier == nil {
		return
	}
	n := entity.Notification{
		UserId:      ownerID,
		Level:       entity.NotificationWarning,
		Title:       constant.PersistFailedTitle,
		Description: "Your latest changes could not be saved.",
		CreatedAt:   time.Now(),
	}
	if errors.Is(err, chaterr.ErrStorageQuotaExceeded) {
		n.Title = constant.StorageFullTitle
		n.Description = constant.StorageFullDescription
	}
	s.opts.Notifier.Notify(ctx, n)
}

func (s *Store) reportCreateFailure(ctx context.Context, err error) {
	owner := s.OwnerID()
	s.opts.Logger.Error(module, "Failed to create session", map[string]interface{}{"owner_id": owner, "error": err})
	s.notify(ctx, owner, err)
}

func sessionName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return constant.DefaultSessionName
	}
	return name
}
