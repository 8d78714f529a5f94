package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// StatusError is returned by HTTP providers for non-2xx responses.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.Code, http.StatusText(e.Code), strings.TrimSpace(e.Body))
}

// DailyLimit reports whether a 429 is a per-day quota that will not clear on retry.
func (e *StatusError) DailyLimit() bool {
	return e.Code == http.StatusTooManyRequests &&
		(strings.Contains(e.Body, "tokens per day") || strings.Contains(e.Body, "TPD"))
}

// ErrEmbeddingUnsupported is returned by providers without an embeddings API.
var ErrEmbeddingUnsupported = errors.New("provider does not support embeddings")

// CanEmbed reports whether p can serve Embed calls. Providers opt out by
// implementing SupportsEmbeddings.
func CanEmbed(p Provider) bool {
	if p == nil {
		return false
	}
	if e, ok := p.(interface{ SupportsEmbeddings() bool }); ok {
		return e.SupportsEmbeddings()
	}
	return true
}
