// Package json provides the request/response JSON helpers shared by the
// REST handlers.
package json

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RespondJSON writes data to w as a JSON body with the given status code.
// HTML characters are left unescaped so shell commands and log lines
// round-trip readably.
func RespondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode json response: %w", err)
	}
	return nil
}
