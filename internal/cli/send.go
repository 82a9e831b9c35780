package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"tarik-chat-be/internal/entity"
	"tarik-chat-be/pkg/chat/persistence"
	"tarik-chat-be/pkg/chat/turn"
	"tarik-chat-be/pkg/llm"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

type staticAuth struct{ user *entity.User }

func (a staticAuth) CurrentUser(context.Context) (*entity.User, bool) {
	return a.user, a.user != nil
}

// imageDataURI inlines a local image file.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > llm.MaxImageBytes {
		return "", fmt.Errorf("image larger than %d bytes", llm.MaxImageBytes)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is %s, not an image", path, mt.String())
	}
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (a *app) sendCmd() *cobra.Command {
	var (
		imagePath string
		sessionID string
		language  string
	)
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Ask Tarik in the active session",
		Long: `Send a message and wait for the reply. Sending requires a signed-in
user (--token). An image attachment is described first, then answered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			var imageRef string
			if imagePath != "" {
				ref, err := imageDataURI(imagePath)
				if err != nil {
					return err
				}
				imageRef = ref
			}

			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(sessionID)
				if err != nil {
					return err
				}

				lang, ok := entity.ParseLanguage(language)
				if !ok {
					lang = persistence.NewLanguagePreference(w.kv, w.ownerID()).Load(cmd.Context())
				}

				gen, analyzer, err := a.newGenerator(cmd.Context(), a.cfg)
				if err != nil {
					return err
				}

				orch := turn.New(turn.Options{
					Store:        w.store,
					Auth:         staticAuth{user: w.user},
					Generator:    gen,
					Analyzer:     analyzer,
					Notifier:     toastPrinter{out: cmd.ErrOrStderr()},
					Logger:       w.log,
					ReplyTimeout: a.cfg.Store.TurnReplyTimeout,
				})
				res, err := orch.Submit(cmd.Context(), turn.Turn{
					SessionID: id,
					Text:      text,
					ImageURL:  imageRef,
					Language:  lang,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if res.AnalysisMessage != nil {
					renderMessage(out, *res.AnalysisMessage)
				}
				renderMessage(out, res.ReplyMessage)
				if res.Title != "" {
					fmt.Fprintln(out, dateStyle.Render("Session renamed to "+res.Title))
				}
				return res.Err
			})
		},
	}
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Attach an image file")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (default: active)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Reply language for this turn (English|Amharic)")
	return cmd
}

func (a *app) languageCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "language [English|Amharic]",
		Short:     "Show or set the reply language",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(entity.LanguageEnglish), string(entity.LanguageAmharic)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				pref := persistence.NewLanguagePreference(w.kv, w.ownerID())
				if len(args) == 1 {
					if err := pref.Save(cmd.Context(), entity.Language(args[0])); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(pref.Load(cmd.Context())))
				return nil
			})
		},
	}
}
