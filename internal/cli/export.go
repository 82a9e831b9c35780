package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"tarik-chat-be/internal/entity"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type exportMessage struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Images    []string  `json:"images,omitempty" yaml:"images,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

type exportSession struct {
	ID        string          `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"updated_at"`
	Messages  []exportMessage `json:"messages" yaml:"messages"`
}

type exportDocument struct {
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Sessions   []exportSession `json:"sessions" yaml:"sessions"`
}

func toExport(sessions []entity.ChatSession, now time.Time) exportDocument {
	doc := exportDocument{ExportedAt: now.UTC(), Sessions: make([]exportSession, 0, len(sessions))}
	for _, s := range sessions {
		es := exportSession{
			ID:        s.Id,
			Name:      s.Name,
			CreatedAt: s.CreatedAt.Time(),
			UpdatedAt: s.UpdatedAt.Time(),
			Messages:  make([]exportMessage, 0, len(s.Messages)),
		}
		for _, m := range s.Messages {
			es.Messages = append(es.Messages, exportMessage{
				Role:      string(m.Role),
				Content:   m.Content,
				Images:    m.DisplayImages(),
				Timestamp: m.Timestamp.Time(),
			})
		}
		doc.Sessions = append(doc.Sessions, es)
	}
	return doc
}

func writeExport(out io.Writer, format string, doc exportDocument) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q (use json or yaml)", format)
}

func (a *app) exportCmd() *cobra.Command {
	var (
		format string
		output string
		active bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export sessions as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				sessions := w.store.ListSessions()
				if active {
					s, ok := w.store.ActiveSession()
					if !ok {
						return fmt.Errorf("no active session")
					}
					sessions = []entity.ChatSession{s}
				}

				out := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					out = f
				}
				return writeExport(out, format, toExport(sessions, time.Now()))
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&active, "active", false, "Only export the active session")
	return cmd
}
