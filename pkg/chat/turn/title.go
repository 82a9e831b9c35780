package turn

import (
	"regexp"
	"strings"
	"unicode"

	"tarik-chat-be/internal/constant"
)

var markupChars = regexp.MustCompile(`[*#_\-]`)

// DeriveTitle builds a short session title from reply text: markup removed,
// first words kept, capped in length and capitalized. It returns the default
// session name when nothing usable remains.
func DeriveTitle(reply string) string {
	cleaned := strings.TrimSpace(markupChars.ReplaceAllString(reply, ""))
	if cleaned == "" {
		return constant.DefaultSessionName
	}

	words := strings.Fields(cleaned)
	n := len(words)
	if n > constant.TitleMaxWords {
		n = constant.TitleMaxWords
	}
	title := []rune(strings.Join(words[:n], " "))

	if len(title) > constant.TitleMaxLength {
		cut := constant.TitleMaxLength - len(constant.TitleTruncationSuffix)
		title = append(title[:cut:cut], []rune(constant.TitleTruncationSuffix)...)
	} else if len(words) > constant.TitleMaxWords && len(title) > 0 {
		title = append(title, []rune(constant.TitleTruncationSuffix)...)
	}

	if len(title) > 0 {
		title[0] = unicode.ToUpper(title[0])
	}

	out := string(title)
	if strings.TrimSpace(strings.ReplaceAll(out, ".", "")) == "" || len(title) < constant.TitleMinLength {
		return constant.DefaultSessionName
	}
	return out
}
