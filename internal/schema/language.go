package schema

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is the user's reply-language preference.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

var (
	supportedTags = []language.Tag{language.English, language.Hindi}
	langMatcher   = language.NewMatcher(supportedTags)
)

// ParseLanguage maps a BCP 47 tag or language name ("hi-IN", "Hindi", "en_US")
// to a supported Language. Unknown input yields English.
func ParseLanguage(s string) Language {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return English
	case "hindi", "हिन्दी", "हिंदी":
		return Hindi
	case "english":
		return English
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return English
	}
	_, idx, conf := langMatcher.Match(tag)
	if conf == language.No || idx >= len(supportedTags) {
		return English
	}
	if supportedTags[idx] == language.Hindi {
		return Hindi
	}
	return English
}

// Name returns the English name of the language, used inside prompts.
func (l Language) Name() string {
	if l == Hindi {
		return "Hindi"
	}
	return "English"
}
