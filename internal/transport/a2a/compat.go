package a2a

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// messageIDCompat rewrites numeric JSON-RPC "id" and message "messageId"
// fields to strings before the request reaches the A2A server's JSON-RPC
// dispatch (spec.md §4.11). Some older clients send these as numbers;
// trpc-a2a-go expects strings throughout. Grounded on the Python original's
// messageId_compatibility_middleware.
func messageIDCompat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		r.Body.Close()

		rewritten, changed := rewriteNumericIDs(body)
		if changed {
			body = rewritten
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))

		next.ServeHTTP(w, r)
	})
}

func rewriteNumericIDs(body []byte) ([]byte, bool) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body, false
	}

	changed := false

	if id, ok := data["id"]; ok {
		if n, ok := id.(float64); ok {
			data["id"] = formatNumericID(n)
			changed = true
		}
	}

	if params, ok := data["params"].(map[string]any); ok {
		if msg, ok := params["message"].(map[string]any); ok {
			if mid, ok := msg["messageId"]; ok {
				if n, ok := mid.(float64); ok {
					msg["messageId"] = formatNumericID(n)
					changed = true
				}
			}
		}
	}

	if !changed {
		return body, false
	}

	out, err := json.Marshal(data)
	if err != nil {
		return body, false
	}
	return out, true
}

func formatNumericID(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
