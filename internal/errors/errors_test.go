package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteErrorError(t *testing.T) {
	err := NewRenderError("template execution failed", errors.New("boom")).
		WithDestination("fr/index.html").
		WithFile("base.html")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_RENDER_FAILED]")
	assert.Contains(t, msg, "destination:fr/index.html")
	assert.Contains(t, msg, "base.html")
	assert.Contains(t, msg, "template execution failed")
	assert.Contains(t, msg, ": boom")
}

func TestSiteErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	err := ErrWriteFailed("public/index.html", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &SiteError{Type: ErrorTypeIO, Code: ErrCodeWriteFailed}))
	assert.False(t, errors.Is(err, &SiteError{Type: ErrorTypeIO, Code: ErrCodeInternalError}))

	wrapped := fmt.Errorf("build index: %w", err)
	se, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "public/index.html", se.FilePath)
}

func TestRecoverability(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		recoverable bool
		errType     ErrorType
	}{
		{"config", NewConfigError(ErrCodeConfigInvalid, "bad"), false, ErrorTypeConfig},
		{"template", ErrTemplateNotFound("x.html", nil), true, ErrorTypeTemplate},
		{"render", NewRenderError("bad", nil), true, ErrorTypeRender},
		{"data", NewDataError("bad", nil), true, ErrorTypeData},
		{"io", NewIOError(ErrCodeWriteFailed, "bad", nil), false, ErrorTypeIO},
		{"internal", NewInternalError("bad", nil), false, ErrorTypeInternal},
		{"plain", errors.New("plain"), false, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.recoverable, IsRecoverable(tc.err))
			if tc.errType != "" {
				assert.True(t, IsType(fmt.Errorf("wrapped: %w", tc.err), tc.errType))
			}
		})
	}
}

func TestConfigErrorHelpers(t *testing.T) {
	err := ErrMissingAttribute("title", "index.html")
	assert.Equal(t, ErrorTypeConfig, err.Type)
	assert.Equal(t, "title", err.Context["attribute"])
	assert.Contains(t, err.Error(), `"title"`)

	noLang := ErrNoLanguage("about")
	assert.Equal(t, ErrCodeNoLanguage, noLang.Code)
	assert.False(t, noLang.Recoverable)
}
