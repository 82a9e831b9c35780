// Package turn drives one user submission through reply generation and
// reconciles its placeholder message exactly once.
package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/llm"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "TURN"

// DefaultReplyTimeout bounds the analysis and reply calls of one turn.
const DefaultReplyTimeout = 90 * time.Second

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingReply
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type Authenticator interface {
	CurrentUser(ctx context.Context) (*entity.User, bool)
}

// SessionStore is the part of *store.Store a turn writes through.
type SessionStore interface {
	ActiveSession() (entity.ChatSession, bool)
	Session(id string) (entity.ChatSession, bool)
	AddMessage(ctx context.Context, sessionID string, msg entity.ChatMessage) (*store.Pending, error)
	UpdateMessage(ctx context.Context, sessionID, messageID string, patch entity.MessagePatch) (*store.Pending, error)
	InsertMessageAfter(ctx context.Context, sessionID, afterID string, msg entity.ChatMessage) (*store.Pending, error)
	RenameSession(ctx context.Context, id, name string) (*store.Pending, error)
}

type Turn struct {
	// SessionID targets a session explicitly; empty means the active one.
	SessionID string
	Text      string
	ImageURL  string
	Language  entity.Language
}

// Event reports a state transition of one turn.
type Event struct {
	TurnID    string
	SessionID string
	State     State
}

type Result struct {
	TurnID          string
	SessionID       string
	State           State
	UserMessage     entity.ChatMessage
	AnalysisMessage *entity.ChatMessage
	ReplyMessage    entity.ChatMessage
	// Title is set when the session was renamed after the reply.
	Title string
	// Err is the generation failure of a Failed turn.
	Err error
}

type Options struct {
	Store        SessionStore
	Auth         Authenticator
	Generator    llm.ReplyGenerator
	Analyzer     llm.ImageAnalyzer
	Notifier     store.Notifier
	Logger       logger.ILogger
	Tracer       trace.Tracer
	ReplyTimeout time.Duration
	Clock        func() entity.Instant
	NewID        func() string
	Observer     func(Event)
}

type Orchestrator struct {
	opts Options
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("tarik-chat-be/turn")
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if opts.Clock == nil {
		opts.Clock = entity.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{opts: opts}
}

// Submit runs one turn to completion. Precondition failures return an error
// and touch nothing. Once the turn started, generation failures resolve the
// placeholder to an apology and come back in Result.Err, never as error.
func (o *Orchestrator) Submit(ctx context.Context, t Turn) (*Result, error) {
	user, ok := o.currentUser(ctx)
	if !ok {
		o.notify(ctx, "", entity.NotificationError, constant.AuthRequiredTitle, constant.AuthRequiredMessage)
		return nil, chaterr.ErrUnauthorized
	}

	if strings.TrimSpace(t.Text) == "" && strings.TrimSpace(t.ImageURL) == "" {
		return nil, chaterr.Validation("turn needs text or an image")
	}
	if t.Language == "" {
		t.Language = entity.LanguageEnglish
	}

	var (
		session entity.ChatSession
		found   bool
	)
	if t.SessionID != "" {
		session, found = o.opts.Store.Session(t.SessionID)
	} else {
		session, found = o.opts.Store.ActiveSession()
	}
	if !found {
		return nil, chaterr.ErrNotFound
	}

	res := &Result{TurnID: o.opts.NewID(), SessionID: session.Id, State: StateIdle}

	ctx, span := o.opts.Tracer.Start(ctx, "turn.Submit", trace.WithAttributes(
		attribute.String("turn.id", res.TurnID),
		attribute.String("session.id", session.Id),
		attribute.String("turn.language", string(t.Language)),
		attribute.Bool("turn.has_image", t.ImageURL != ""),
	))
	defer span.End()

	firstTurn := session.Name == constant.DefaultSessionName && session.CountConversational() == 0
	history := historyOf(session)

	// Submitting
	o.transition(res, StateSubmitting)
	res.UserMessage = entity.ChatMessage{
		Id:        o.opts.NewID(),
		Role:      entity.RoleUser,
		Content:   t.Text,
		ImageUrl:  t.ImageURL,
		Timestamp: o.opts.Clock(),
	}
	if _, err := o.opts.Store.AddMessage(ctx, session.Id, res.UserMessage); err != nil {
		return nil, err
	}

	placeholder := entity.ChatMessage{
		Id:        o.opts.NewID(),
		Role:      entity.RoleAssistant,
		Content:   constant.ThinkingMarker,
		Timestamp: o.opts.Clock(),
		IsLoading: true,
	}
	p, err := o.opts.Store.AddMessage(ctx, session.Id, placeholder)
	if err != nil {
		return nil, err
	}
	if err := p.Wait(ctx); err != nil {
		o.opts.Logger.Warn(module, "Placeholder not persisted, continuing", map[string]interface{}{"turn_id": res.TurnID, "error": err.Error()})
	}

	// AwaitingReply
	o.transition(res, StateAwaitingReply)
	genCtx, cancel := context.WithTimeout(ctx, o.opts.ReplyTimeout)
	defer cancel()

	if t.ImageURL != "" {
		analysis := o.analyze(genCtx, res.TurnID, t.ImageURL)
		res.AnalysisMessage = &analysis
	}

	reply, err := o.opts.Generator.GenerateReply(genCtx, llm.ReplyRequest{
		History:   history,
		UserText:  t.Text,
		UserImage: t.ImageURL,
		Language:  t.Language,
	})
	if err != nil {
		return o.fail(ctx, span, res, user, placeholder.Id, err), nil
	}

	refs := reply.ImageRefs
	if limit := t.Language.MaxReplyImages(); limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	res.ReplyMessage = entity.ChatMessage{
		Id:        placeholder.Id,
		Role:      entity.RoleAssistant,
		Content:   reply.Text,
		ImageUrls: refs,
		Timestamp: o.opts.Clock(),
	}

	// Resolved
	if res.AnalysisMessage != nil {
		res.AnalysisMessage.Id = placeholder.Id
		res.ReplyMessage.Id = o.opts.NewID()
		o.write(o.opts.Store.UpdateMessage(ctx, session.Id, placeholder.Id, entity.PatchFrom(*res.AnalysisMessage)))
		o.write(o.opts.Store.InsertMessageAfter(ctx, session.Id, placeholder.Id, res.ReplyMessage))
	} else {
		o.write(o.opts.Store.UpdateMessage(ctx, session.Id, placeholder.Id, entity.PatchFrom(res.ReplyMessage)))
	}
	o.transition(res, StateResolved)

	if firstTurn {
		if title := DeriveTitle(reply.Text); title != constant.DefaultSessionName {
			if _, err := o.opts.Store.RenameSession(ctx, session.Id, title); err == nil {
				res.Title = title
			} else {
				o.opts.Logger.Warn(module, "Auto title rename failed", map[string]interface{}{"session_id": session.Id, "error": err.Error()})
			}
		}
	}

	span.SetStatus(codes.Ok, "")
	o.opts.Logger.Info(module, "Turn resolved", map[string]interface{}{
		"turn_id":    res.TurnID,
		"session_id": session.Id,
		"user_id":    user.Id,
		"analysis":   res.AnalysisMessage != nil,
		"renamed":    res.Title != "",
	})
	return res, nil
}

func (o *Orchestrator) analyze(ctx context.Context, turnID, imageRef string) entity.ChatMessage {
	msg := entity.ChatMessage{
		Id:        o.opts.NewID(),
		Role:      entity.RoleSystem,
		Content:   constant.AnalysisFailedMessage,
		Timestamp: o.opts.Clock(),
	}
	if o.opts.Analyzer == nil {
		return msg
	}
	labels, err := o.opts.Analyzer.AnalyzeImage(ctx, imageRef)
	if err != nil || len(labels) == 0 {
		o.opts.Logger.Warn(module, "Image analysis failed", map[string]interface{}{"turn_id": turnID, "error": errString(err)})
		return msg
	}
	msg.Content = constant.AnalysisMessagePrefix + strings.Join(labels, ", ") + "."
	return msg
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, res *Result, user *entity.User, placeholderID string, cause error) *Result {
	if errors.Is(cause, context.DeadlineExceeded) {
		o.opts.Logger.Warn(module, "Reply timed out", map[string]interface{}{"turn_id": res.TurnID, "timeout": o.opts.ReplyTimeout.String()})
	}
	res.Err = &chaterr.GenerationError{Stage: "reply", Err: cause}

	role := entity.RoleAssistant
	content := constant.ReplyFailedMessage
	loading := false
	o.write(o.opts.Store.UpdateMessage(ctx, res.SessionID, placeholderID, entity.MessagePatch{
		Role:      &role,
		Content:   &content,
		IsLoading: &loading,
	}))
	res.ReplyMessage = entity.ChatMessage{Id: placeholderID, Role: role, Content: content, Timestamp: o.opts.Clock()}
	// The apology takes the placeholder slot, so no analysis message lands.
	res.AnalysisMessage = nil

	o.transition(res, StateFailed)
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	o.opts.Logger.Error(module, "Turn failed", map[string]interface{}{"turn_id": res.TurnID, "session_id": res.SessionID, "error": cause})
	o.notify(ctx, user.Id, entity.NotificationError, constant.ReplyFailedTitle, "Failed to get AI response: "+cause.Error())
	return res
}

func (o *Orchestrator) write(_ *store.Pending, err error) {
	if err != nil {
		o.opts.Logger.Warn(module, "Session write rejected", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) transition(res *Result, s State) {
	res.State = s
	o.opts.Logger.Debug(module, "Turn state", map[string]interface{}{"turn_id": res.TurnID, "state": s.String()})
	if o.opts.Observer != nil {
		o.opts.Observer(Event{TurnID: res.TurnID, SessionID: res.SessionID, State: s})
	}
}

func (o *Orchestrator) currentUser(ctx context.Context) (*entity.User, bool) {
	if o.opts.Auth == nil {
		return nil, false
	}
	u, ok := o.opts.Auth.CurrentUser(ctx)
	return u, ok && u != nil
}

func (o *Orchestrator) notify(ctx context.Context, userID string, level entity.NotificationLevel, title, description string) {
	if o.opts.Notifier == nil {
		return
	}
	o.opts.Notifier.Notify(ctx, entity.Notification{
		UserId:      userID,
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now(),
	})
}

// historyOf returns the settled messages of session in order.
func historyOf(session entity.ChatSession) []llm.HistoryItem {
	out := make([]llm.HistoryItem, 0, len(session.Messages))
	for _, m := range session.Messages {
		if m.IsLoading {
			continue
		}
		item := llm.HistoryItem{Role: m.Role, Content: m.Content}
		if imgs := m.DisplayImages(); len(imgs) > 0 {
			item.ImageRef = imgs[0]
		}
		out = append(out, item)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
