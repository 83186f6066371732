package llm

import (
	"encoding/json"
	"errors"
	"strings"

	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// DecodeJSON parses a JSON completion into v. Markdown code fences are
// tolerated; anything else that fails to parse is a malformed response.
func DecodeJSON(op, raw string, v any) error {
	body := stripFences(raw)
	if body == "" {
		return apperrors.Malformed(op, raw, errEmptyResponse)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperrors.Malformed(op, raw, err)
	}
	return nil
}

var errEmptyResponse = errors.New("empty response")

func stripFences(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
