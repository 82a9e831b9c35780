package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tarik-chat-be/internal/dto"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/persistence"
	"tarik-chat-be/pkg/chat/sanitize"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/chat/turn"
	"tarik-chat-be/pkg/events"
	"tarik-chat-be/pkg/llm"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/trace"
)

const DefaultStoreIdleTTL = 30 * time.Minute

var errNoActiveSession = fmt.Errorf("no active session: %w", chaterr.ErrNotFound)

type IChatService interface {
	ListSessions(ctx context.Context, ownerID string) (*dto.SessionListResponse, error)
	ActiveSession(ctx context.Context, ownerID string) (*entity.ChatSession, error)
	CreateSession(ctx context.Context, ownerID string, req *dto.CreateSessionRequest) (*entity.ChatSession, error)
	RenameSession(ctx context.Context, ownerID, sessionID string, req *dto.RenameSessionRequest) error
	DeleteSession(ctx context.Context, ownerID, sessionID string) error
	ActivateSession(ctx context.Context, ownerID, sessionID string) error
	ClearMessages(ctx context.Context, ownerID, sessionID string) error
	SubmitTurn(ctx context.Context, user *entity.User, sessionID string, req *dto.SubmitTurnRequest) (*dto.TurnResponse, error)
	GetLanguage(ctx context.Context, ownerID string) entity.Language
	SetLanguage(ctx context.Context, ownerID string, lang entity.Language) error
	// Release disposes the owner's store, flushing queued writes.
	Release(ctx context.Context, ownerID string)
	Close()
}

type ChatOptions struct {
	KeyValues    contract.KeyValueRepository
	Documents    contract.SessionDocumentRepository
	Limits       sanitize.Limits
	Notifier     store.Notifier
	Generator    llm.ReplyGenerator
	Analyzer     llm.ImageAnalyzer
	Publisher    events.Publisher
	Logger       logger.ILogger
	Tracer       trace.Tracer
	ReplyTimeout time.Duration
	IdleTTL      time.Duration
}

// ownerEntry is one owner's store plus the turns running against it. A
// released entry accepts no new turns and disposes its store once the
// running ones finish.
type ownerEntry struct {
	ready    chan struct{}
	disposed chan struct{}
	store    *store.Store
	err      error

	mu       sync.Mutex
	turns    int
	released bool
	drained  chan struct{}
}

func newOwnerEntry(st *store.Store) *ownerEntry {
	return &ownerEntry{
		ready:    make(chan struct{}),
		disposed: make(chan struct{}),
		drained:  make(chan struct{}),
		store:    st,
	}
}

func (e *ownerEntry) beginTurn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return false
	}
	e.turns++
	return true
}

func (e *ownerEntry) endTurn() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns--
	if e.released && e.turns == 0 {
		close(e.drained)
	}
}

// dispose waits for Init and for running turns, then disposes the store.
func (e *ownerEntry) dispose() {
	<-e.ready
	e.mu.Lock()
	e.released = true
	wait := e.turns > 0
	e.mu.Unlock()
	if wait {
		<-e.drained
	}
	e.store.Dispose()
	close(e.disposed)
}

type chatService struct {
	opts ChatOptions

	// mu guards stores and retiring. Entries only leave stores while mu
	// is held, so OnEvicted always runs under it.
	mu       sync.Mutex
	stores   *cache.Cache
	retiring map[string]*ownerEntry

	stop      chan struct{}
	closeOnce sync.Once
}

func NewChatService(opts ChatOptions) IChatService {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultStoreIdleTTL
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	s := &chatService{
		opts:     opts,
		stores:   cache.New(opts.IdleTTL, cache.NoExpiration),
		retiring: make(map[string]*ownerEntry),
		stop:     make(chan struct{}),
	}
	s.stores.OnEvicted(func(owner string, v interface{}) {
		e := v.(*ownerEntry)
		s.retiring[owner] = e
		go func() {
			e.dispose()
			s.mu.Lock()
			if s.retiring[owner] == e {
				delete(s.retiring, owner)
			}
			s.mu.Unlock()
			s.opts.Logger.Debug("ChatService", "Owner store released", map[string]interface{}{"owner_id": owner})
		}()
	})
	go s.sweep(opts.IdleTTL / 2)
	return s
}

func (s *chatService) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.mu.Lock()
			s.stores.DeleteExpired()
			s.mu.Unlock()
		}
	}
}

// entryFor returns the owner's initialised entry, creating it on first use.
// Every access pushes the idle expiry back. A new entry loads only after
// the owner's previous store has finished disposing.
func (s *chatService) entryFor(ctx context.Context, ownerID string) (*ownerEntry, error) {
	s.mu.Lock()
	// Expired entries still visible to Set would be overwritten without
	// OnEvicted and never disposed.
	s.stores.DeleteExpired()
	if x, found := s.stores.Get(ownerID); found {
		e := x.(*ownerEntry)
		s.stores.Set(ownerID, e, cache.DefaultExpiration)
		s.mu.Unlock()
		<-e.ready
		return e, e.err
	}

	prev := s.retiring[ownerID]
	e := newOwnerEntry(store.New(store.Options{
		KeyValues: s.opts.KeyValues,
		Documents: s.opts.Documents,
		Limits:    s.opts.Limits,
		Logger:    s.opts.Logger,
		Notifier:  s.opts.Notifier,
	}))
	s.stores.Set(ownerID, e, cache.DefaultExpiration)
	s.mu.Unlock()

	if prev != nil {
		<-prev.disposed
	}
	e.err = e.store.Init(ctx, ownerID)
	close(e.ready)
	if e.err != nil {
		s.mu.Lock()
		if x, found := s.stores.Get(ownerID); found && x == e {
			s.stores.Delete(ownerID)
		}
		s.mu.Unlock()
	}
	return e, e.err
}

func (s *chatService) storeFor(ctx context.Context, ownerID string) (*store.Store, error) {
	e, err := s.entryFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return e.store, nil
}

// turnEntry returns an entry with a turn registered on it. Callers must
// call endTurn.
func (s *chatService) turnEntry(ctx context.Context, ownerID string) (*ownerEntry, error) {
	for {
		e, err := s.entryFor(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if e.beginTurn() {
			return e, nil
		}
	}
}

func (s *chatService) ListSessions(ctx context.Context, ownerID string) (*dto.SessionListResponse, error) {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	res := &dto.SessionListResponse{Sessions: st.ListSessions(), Remote: st.Remote()}
	if active, ok := st.ActiveSession(); ok {
		res.ActiveId = active.Id
	}
	return res, nil
}

func (s *chatService) ActiveSession(ctx context.Context, ownerID string) (*entity.ChatSession, error) {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	active, ok := st.ActiveSession()
	if !ok {
		return nil, errNoActiveSession
	}
	return &active, nil
}

func (s *chatService) CreateSession(ctx context.Context, ownerID string, req *dto.CreateSessionRequest) (*entity.ChatSession, error) {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	created, _, err := st.CreateSession(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SessionCreated(ownerID, created.Id))
	return &created, nil
}

func (s *chatService) RenameSession(ctx context.Context, ownerID, sessionID string, req *dto.RenameSessionRequest) error {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return err
	}
	_, err = st.RenameSession(ctx, sessionID, req.Name)
	return err
}

func (s *chatService) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, err := st.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, events.SessionDeleted(ownerID, sessionID))
	return nil
}

func (s *chatService) ActivateSession(ctx context.Context, ownerID, sessionID string) error {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return err
	}
	_, err = st.SwitchSession(ctx, sessionID)
	return err
}

func (s *chatService) ClearMessages(ctx context.Context, ownerID, sessionID string) error {
	st, err := s.storeFor(ctx, ownerID)
	if err != nil {
		return err
	}
	_, err = st.ClearMessages(ctx, sessionID)
	return err
}

func (s *chatService) SubmitTurn(ctx context.Context, user *entity.User, sessionID string, req *dto.SubmitTurnRequest) (*dto.TurnResponse, error) {
	e, err := s.turnEntry(ctx, user.Id)
	if err != nil {
		return nil, err
	}
	defer e.endTurn()
	st := e.store

	lang, ok := entity.ParseLanguage(req.Language)
	if !ok {
		lang = s.GetLanguage(ctx, user.Id)
	}

	orch := turn.New(turn.Options{
		Store:        st,
		Auth:         ContextAuthenticator{},
		Generator:    s.opts.Generator,
		Analyzer:     s.opts.Analyzer,
		Notifier:     s.opts.Notifier,
		Logger:       s.opts.Logger,
		Tracer:       s.opts.Tracer,
		ReplyTimeout: s.opts.ReplyTimeout,
	})
	res, err := orch.Submit(WithUser(ctx, user), turn.Turn{
		SessionID: sessionID,
		Text:      req.Text,
		ImageURL:  req.ImageUrl,
		Language:  lang,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TurnCompleted(user.Id, res.SessionID, res.TurnID, string(lang), res.Err != nil))
	out := &dto.TurnResponse{
		TurnId:          res.TurnID,
		SessionId:       res.SessionID,
		State:           res.State.String(),
		UserMessage:     res.UserMessage,
		AnalysisMessage: res.AnalysisMessage,
		ReplyMessage:    res.ReplyMessage,
		Title:           res.Title,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out, nil
}

func (s *chatService) GetLanguage(ctx context.Context, ownerID string) entity.Language {
	return persistence.NewLanguagePreference(s.opts.KeyValues, ownerID).Load(ctx)
}

func (s *chatService) SetLanguage(ctx context.Context, ownerID string, lang entity.Language) error {
	return persistence.NewLanguagePreference(s.opts.KeyValues, ownerID).Save(ctx, lang)
}

// Release returns immediately; turns still running finish before the
// store is disposed.
func (s *chatService) Release(_ context.Context, ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores.Delete(ownerID)
}

// Close releases every owner store and waits for them to dispose.
func (s *chatService) Close() {
	s.closeOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	// Items skips expired entries; evict them first so they retire.
	s.stores.DeleteExpired()
	items := s.stores.Items()
	s.stores.Flush()
	retiring := make([]*ownerEntry, 0, len(s.retiring))
	for _, e := range s.retiring {
		retiring = append(retiring, e)
	}
	s.mu.Unlock()

	for _, item := range items {
		item.Object.(*ownerEntry).dispose()
	}
	for _, e := range retiring {
		<-e.disposed
	}
}

func (s *chatService) publish(ctx context.Context, ev events.Event) {
	if err := s.opts.Publisher.Publish(ctx, ev); err != nil {
		s.opts.Logger.Warn("ChatService", "Failed to publish event", map[string]interface{}{"type": ev.EventType(), "error": err.Error()})
	}
}
