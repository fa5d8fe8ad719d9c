package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// wrapAPIError turns a go-openai client error into "<op>: <status/reason>"
// wrapped with the given domain sentinel, keeping the provider's status code
// and message so degrade-path logs say why the call failed.
func wrapAPIError(err error, op string, sentinel error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		reason := errorBodyReason(reqErr.Body)
		if reason == "" {
			reason = string(reqErr.Body)
		}
		return fmt.Errorf("%s: API error %d: %s: %w", op, reqErr.HTTPStatusCode, reason, sentinel)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, sentinel)
	}

	return fmt.Errorf("%s: %v: %w", op, err, sentinel)
}

// errorBodyReason pulls a human-readable reason out of a JSON error body.
// OpenAI-compatible gateways disagree on the field name.
func errorBodyReason(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Message
}
