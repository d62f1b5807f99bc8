package language

import (
	"testing"

	siteerrors "github.com/conneroisu/pagesmith/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		code   string
		region string
	}{
		{"fr_FR", "FR"},
		{"en-US", "US"},
		{"de", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			lang, err := Parse(tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.code, lang.Code)
			assert.Equal(t, tc.region, lang.Region)
			assert.NotEmpty(t, lang.Label)
			assert.False(t, lang.IsZero())
		})
	}
}

func TestParseLabel(t *testing.T) {
	lang := MustParse("fr_FR")
	assert.Contains(t, lang.Label, "français")
	assert.Equal(t, "fr-FR", lang.Tag().String())
	assert.Equal(t, "fr_FR", lang.String())
}

func TestParseInvalid(t *testing.T) {
	for _, code := range []string{"", "not a language!"} {
		_, err := Parse(code)
		require.Error(t, err)
		assert.True(t, siteerrors.IsType(err, siteerrors.ErrorTypeConfig))
	}
}
