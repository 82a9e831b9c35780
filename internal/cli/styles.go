package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tarik-chat-be/internal/entity"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatWhen(i entity.Instant, now time.Time) string {
	if i.IsZero() {
		return "-"
	}
	t := i.Time().Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02")
}

func renderSessions(out io.Writer, sessions []entity.ChatSession, activeID string, remote bool) {
	where := "local"
	if remote {
		where = "synced"
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d session(s), %s", len(sessions), where)))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, " \t"+titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t")

	now := time.Now()
	for _, s := range sessions {
		marker := " "
		if s.Id == activeID {
			marker = activeStyle.Render("*")
		}
		name := s.Name
		if r := []rune(name); len(r) > 40 {
			name = string(r[:37]) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			marker,
			idStyle.Render(shortID(s.Id)),
			name,
			countStyle.Render(strconv.Itoa(len(s.Messages))),
			dateStyle.Render(formatWhen(s.UpdatedAt, now)),
		)
	}
	_ = w.Flush()
}

func roleLabel(r entity.Role) string {
	switch r {
	case entity.RoleUser:
		return userStyle.Render("You")
	case entity.RoleAssistant:
		return assistantStyle.Render("Tarik")
	}
	return systemStyle.Render("System")
}

func renderMessage(out io.Writer, m entity.ChatMessage) {
	fmt.Fprintf(out, "%s %s\n", roleLabel(m.Role), dateStyle.Render(m.Timestamp.Time().Local().Format("15:04")))
	if m.Content != "" {
		fmt.Fprintln(out, m.Content)
	}
	for _, img := range m.DisplayImages() {
		fmt.Fprintln(out, idStyle.Render("[image] "+describeImage(img)))
	}
	fmt.Fprintln(out)
}

func renderSession(out io.Writer, s entity.ChatSession) {
	fmt.Fprintln(out, headerStyle.Render(s.Name)+" "+idStyle.Render(s.Id))
	fmt.Fprintln(out)
	if len(s.Messages) == 0 {
		fmt.Fprintln(out, dateStyle.Render("No messages yet."))
		return
	}
	for _, m := range s.Messages {
		renderMessage(out, m)
	}
}

// describeImage keeps inline data URIs from flooding the terminal.
func describeImage(ref string) string {
	if strings.HasPrefix(ref, "data:") {
		if semi := strings.IndexAny(ref, ";,"); semi > 5 {
			return "inline " + ref[5:semi]
		}
		return "inline image"
	}
	return ref
}
