package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies at 1 MiB. Nothing the API accepts is
// legitimately larger.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst. Unknown fields are
// rejected, bodies are capped at 1 MiB and trailing data after the first
// JSON value is an error.
func DecodeJSON(ctx context.Context, r *http.Request, dst any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after json body")
	}
	return nil
}
