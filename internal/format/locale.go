package format

import (
	"golang.org/x/text/language"
)

// Supported lists the locales the review screen is translated into.
var Supported = []language.Tag{language.Japanese, language.English}

var matcher = language.NewMatcher(Supported)

// Negotiate picks a supported locale from an Accept-Language header.
func Negotiate(acceptLanguage string, fallback language.Tag) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// ParseLocale parses a configured locale name, falling back to Japanese.
func ParseLocale(name string) language.Tag {
	tag, err := language.Parse(name)
	if err != nil {
		return language.Japanese
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Japanese
	}
	return Supported[idx]
}
