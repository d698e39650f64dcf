package guard

import (
	"encoding/json"
	"fmt"
)

// request is the hook payload shape the guard cares about. The caller
// may send additional fields; they are ignored.
type request struct {
	ToolName string
	FilePath string
}

// parseRequest decodes the payload. A field of the wrong type degrades
// to "no path to check" rather than an error; only a payload that is
// not valid JSON at all is rejected.
func parseRequest(payload []byte) (request, error) {
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return request{}, fmt.Errorf("guard: parse hook input: %w", err)
	}

	var req request
	req.ToolName, _ = doc["tool_name"].(string)
	if ti, ok := doc["tool_input"].(map[string]any); ok {
		req.FilePath, _ = ti["file_path"].(string)
	}
	return req, nil
}
