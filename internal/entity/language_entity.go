package entity

type Language string

const (
	LanguageEnglish Language = "English"
	LanguageAmharic Language = "Amharic"
)

func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LanguageEnglish, LanguageAmharic:
		return Language(s), true
	}
	return "", false
}

// MaxReplyImages is how many image references a reply in this language may carry.
// Zero means unbounded.
func (l Language) MaxReplyImages() int {
	if l == LanguageAmharic {
		return 1
	}
	return 0
}
