// Package language describes the language a page is rendered in.
package language

import (
	"fmt"
	"strings"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language identifies the locale of a page. Code keeps the spelling used in
// configuration (for example "fr_FR") because it is substituted verbatim into
// template names and destinations.
type Language struct {
	Code   string `json:"code" yaml:"code"`
	Label  string `json:"label" yaml:"label"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

// Parse builds a Language from a code such as "fr_FR", "en-US" or "de".
// The label is the language's own name for itself.
func Parse(code string) (Language, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Language{}, siteerrors.NewConfigError(
			siteerrors.ErrCodeInvalidLanguage,
			"language code is empty",
		)
	}

	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return Language{}, siteerrors.NewConfigError(
			siteerrors.ErrCodeInvalidLanguage,
			fmt.Sprintf("invalid language code %q: %v", code, err),
		)
	}

	lang := Language{Code: code, Label: display.Self.Name(tag)}
	if _, _, region := tag.Raw(); region.String() != "ZZ" {
		lang.Region = region.String()
	}
	if lang.Label == "" {
		lang.Label = code
	}

	return lang, nil
}

// MustParse is Parse for codes known to be valid, such as test fixtures.
func MustParse(code string) Language {
	lang, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return lang
}

// IsZero reports whether the language is unset.
func (l Language) IsZero() bool {
	return l.Code == ""
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() xlang.Tag {
	tag, err := xlang.Parse(strings.ReplaceAll(l.Code, "_", "-"))
	if err != nil {
		return xlang.Und
	}
	return tag
}

func (l Language) String() string {
	return l.Code
}
