package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Order not found", T("en", KeyOrderNotFound))
	assert.Equal(t, "ऑर्डर नहीं मिला", T("hi", KeyOrderNotFound))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))
	assert.ElementsMatch(t, []string{"en", "hi"}, GetSupportedLanguages())
}

func TestFallbacks(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Order not found", T("ta", KeyOrderNotFound), "unknown language falls back to English")
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))
}
