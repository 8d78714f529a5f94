package language

import (
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
)

// DetectContent returns a best-effort content-based language hint for an
// uploaded file. It is informational only and never changes what Classify
// returns. An empty string means no guess.
func DetectContent(filename string, content []byte) string {
	if len(content) == 0 || !isPrintableName(filename) {
		return ""
	}
	base := filepath.Base(filename)
	if lang := enry.GetLanguage(base, content); lang != "" {
		return lang
	}
	if lang, _ := enry.GetLanguageByExtension(base); lang != "" {
		return lang
	}
	return ""
}
