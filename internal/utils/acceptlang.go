package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// DetermineLocale resolves the locale to use from an explicit query value,
// the Accept-Language header, the supported base languages (e.g. "en", "ja")
// and a default. The query value wins when it matches a supported language.
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	if len(supported) == 0 {
		return "en"
	}
	tags := make([]language.Tag, 0, len(supported))
	names := make([]string, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(s)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		names = append(names, strings.ToLower(s))
	}
	if len(tags) == 0 {
		return strings.ToLower(supported[0])
	}
	matcher := language.NewMatcher(tags)

	pick := func(want ...language.Tag) (string, bool) {
		if len(want) == 0 {
			return "", false
		}
		_, idx, conf := matcher.Match(want...)
		if conf == language.No {
			return "", false
		}
		return names[idx], true
	}

	if q := strings.TrimSpace(queryLang); q != "" {
		if tag, err := language.Parse(q); err == nil {
			if v, ok := pick(tag); ok {
				return v
			}
		}
	}
	if a := strings.TrimSpace(acceptLang); a != "" {
		if want, _, err := language.ParseAcceptLanguage(a); err == nil {
			if v, ok := pick(want...); ok {
				return v
			}
		}
	}
	for _, n := range names {
		if n == strings.ToLower(def) {
			return n
		}
	}
	return names[0]
}
