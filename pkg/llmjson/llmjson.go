// Package llmjson decodes JSON out of model responses, tolerating
// markdown fences and minor syntax damage.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Unmarshal strips markdown fences from content and decodes it into v,
// repairing malformed JSON when a direct decode fails.
func Unmarshal(content string, v any) error {
	cleaned := StripFences(content)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("unparseable response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("unparseable response after repair: %w", err)
	}
	return nil
}

// StripFences removes a surrounding markdown code fence, if present.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
