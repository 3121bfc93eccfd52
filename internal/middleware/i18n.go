// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware stores the request language, falling back to defaultLang when
// Accept-Language names nothing supported.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

// preferredLanguage picks the first supported tag, e.g. "hi-IN,hi;q=0.9,en;q=0.8" -> "hi".
func preferredLanguage(header, fallback string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		switch strings.ToLower(tag) {
		case "hi", "hi-in":
			return "hi"
		case "en", "en-us", "en-gb", "en-in":
			return "en"
		}
	}
	return fallback
}
