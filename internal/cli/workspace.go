package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/internal/repository/implementation"
	"tarik-chat-be/internal/service"
	"tarik-chat-be/pkg/chat/chaterr"
	"tarik-chat-be/pkg/chat/sanitize"
	"tarik-chat-be/pkg/chat/store"
	"tarik-chat-be/pkg/database"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// workspace is one command's view of the user's sessions.
type workspace struct {
	ctx   context.Context
	store *store.Store
	kv    contract.KeyValueRepository
	user  *entity.User
	log   logger.ILogger

	closers []func()
}

// identify reads the user id from an access token. With a secret the
// signature and expiry are checked; without one the token is only trusted
// for local sessions.
func identify(token, secret string) (*entity.User, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	var claims service.TokenClaims
	if secret != "" {
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", chaterr.ErrUnauthorized, err)
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, false, fmt.Errorf("%w: %v", chaterr.ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return nil, false, fmt.Errorf("%w: token carries no user id", chaterr.ErrUnauthorized)
	}
	return &entity.User{Id: claims.UserID}, secret != "", nil
}

func (a *app) open(ctx context.Context, notify io.Writer) (*workspace, error) {
	w := &workspace{ctx: ctx, log: logger.NewNopLogger()}
	if a.verbose {
		w.log = logger.NewIsolatedLogger(strings.TrimSuffix(a.dbPath, filepath.Ext(a.dbPath)) + ".log")
	}

	user, verified, err := identify(a.token, a.cfg.Auth.JwtSecret)
	if err != nil {
		return nil, err
	}
	w.user = user

	if err := os.MkdirAll(filepath.Dir(a.dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	bolt, err := implementation.OpenKeyValueBoltRepository(a.dbPath, a.cfg.Store.LocalQuotaBytes)
	if err != nil {
		return nil, err
	}
	w.closers = append(w.closers, func() { _ = bolt.Close() })
	w.kv = bolt

	var documents contract.SessionDocumentRepository
	if uri, ok := os.LookupEnv("MONGO_URI"); ok && uri != "" && verified {
		client, db, err := database.NewMongoDB(ctx, database.MongoConfig{URI: uri, DBName: a.cfg.Database.MongoDBName})
		if err != nil {
			w.close()
			return nil, err
		}
		w.closers = append(w.closers, func() { disconnect(client) })
		documents = implementation.NewSessionDocumentMongoRepository(db)
	}

	w.store = store.New(store.Options{
		KeyValues: bolt,
		Documents: documents,
		Limits: sanitize.Limits{
			MaxMessages:   a.cfg.Store.MaxStoredMessages,
			MaxContentLen: a.cfg.Store.MaxContentLength,
		},
		Logger:   w.log,
		Notifier: toastPrinter{out: notify},
	})
	if err := w.store.Init(ctx, w.ownerID()); err != nil {
		w.close()
		return nil, err
	}
	return w, nil
}

func disconnect(client *mongo.Client) {
	_ = client.Disconnect(context.Background())
}

func (w *workspace) ownerID() string {
	if w.user == nil {
		return ""
	}
	return w.user.Id
}

// resolve accepts a full session id or an unambiguous prefix of one.
func (w *workspace) resolve(ref string) (string, error) {
	if ref == "" {
		active, ok := w.store.ActiveSession()
		if !ok {
			return "", fmt.Errorf("no active session: %w", chaterr.ErrNotFound)
		}
		return active.Id, nil
	}
	var match string
	for _, s := range w.store.ListSessions() {
		if s.Id == ref {
			return s.Id, nil
		}
		if strings.HasPrefix(s.Id, ref) {
			if match != "" {
				return "", fmt.Errorf("session id %q is ambiguous", ref)
			}
			match = s.Id
		}
	}
	if match == "" {
		return "", fmt.Errorf("session %q: %w", ref, chaterr.ErrNotFound)
	}
	return match, nil
}

// settle surfaces the persistence result of a store write.
func (w *workspace) settle(p *store.Pending, err error) error {
	if err != nil {
		return err
	}
	return p.Wait(w.ctx)
}

// finish waits for queued writes, then releases everything.
func (w *workspace) finish(ctx context.Context) error {
	err := w.store.Flush(ctx)
	w.store.Dispose()
	w.close()
	return err
}

func (w *workspace) close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
	w.closers = nil
}

// toastPrinter shows store and turn notifications on stderr.
type toastPrinter struct {
	out io.Writer
}

func (p toastPrinter) Notify(_ context.Context, n entity.Notification) {
	style := infoStyle
	switch n.Level {
	case entity.NotificationWarning:
		style = warnStyle
	case entity.NotificationError:
		style = errorStyle
	}
	fmt.Fprintln(p.out, style.Render(n.Title+": "+n.Description))
}

// withWorkspace opens the workspace, runs fn and flushes before returning.
func (a *app) withWorkspace(ctx context.Context, notify io.Writer, fn func(w *workspace) error) error {
	w, err := a.open(ctx, notify)
	if err != nil {
		return err
	}
	runErr := fn(w)
	if err := w.finish(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
