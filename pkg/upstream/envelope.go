package upstream

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

// messagePaths lists where backends put a human readable error, in priority order.
var messagePaths = []string{
	"message",
	"error",
	"error.message",
	"detail",
	"errors.0.message",
	"errors.0",
}

// ExtractMessage returns the first non-empty string message found in body.
func ExtractMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range messagePaths {
		result := gjson.GetBytes(body, path)
		if result.Type != gjson.String {
			continue
		}
		if msg := strings.TrimSpace(result.String()); msg != "" {
			return msg
		}
	}
	return ""
}

// ErrorFromResponse converts a non-2xx upstream answer into a typed error that keeps
// the upstream status and a normalized message.
func ErrorFromResponse(resp *Response) *pkgerrors.Error {
	if resp == nil {
		return pkgerrors.New(pkgerrors.CodeBadGateway, "empty upstream response")
	}
	status := resp.Status
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}

	msg := ExtractMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	typed := pkgerrors.Upstream(status, msg)
	if details := extractDetails(resp.Body); details != nil {
		typed = typed.WithDetails(details)
	}
	return typed
}

func extractDetails(body []byte) any {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	for _, path := range []string{"details", "errors"} {
		result := gjson.GetBytes(body, path)
		if result.IsObject() || result.IsArray() {
			return json.RawMessage(result.Raw)
		}
	}
	return nil
}
