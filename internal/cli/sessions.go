package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"ls", "list"},
		Short:   "List chat sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				activeID := ""
				if active, ok := w.store.ActiveSession(); ok {
					activeID = active.Id
				}
				renderSessions(cmd.OutOrStdout(), w.store.ListSessions(), activeID, w.store.Remote())
				return nil
			})
		},
	}
}

func (a *app) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [name]",
		Short: "Start a new session and make it active",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				created, p, err := w.store.CreateSession(cmd.Context(), strings.Join(args, " "))
				if err := w.settle(p, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", created.Name, idStyle.Render(created.Id))
				return nil
			})
		},
	}
}

func (a *app) useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(args[0])
				if err != nil {
					return err
				}
				if err := w.settle(w.store.SwitchSession(cmd.Context(), id)); err != nil {
					return err
				}
				s, _ := w.store.Session(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", s.Name)
				return nil
			})
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(args[0])
				if err != nil {
					return err
				}
				name := strings.Join(args[1:], " ")
				if err := w.settle(w.store.RenameSession(cmd.Context(), id, name)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", idStyle.Render(shortID(id)), name)
				return nil
			})
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(args[0])
				if err != nil {
					return err
				}
				if err := w.settle(w.store.DeleteSession(cmd.Context(), id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", idStyle.Render(shortID(id)))
				return nil
			})
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [id]",
		Short: "Remove every message of a session (default: active)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(firstArg(args))
				if err != nil {
					return err
				}
				if err := w.settle(w.store.ClearMessages(cmd.Context(), id)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Messages cleared")
				return nil
			})
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print the messages of a session (default: active)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd.Context(), cmd.ErrOrStderr(), func(w *workspace) error {
				id, err := w.resolve(firstArg(args))
				if err != nil {
					return err
				}
				s, _ := w.store.Session(id)
				renderSession(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
