package inference

import (
	"strings"

	"github.com/tidwall/gjson"
)

// textPaths lists where a reply can live, in priority order:
// Ollama /api/chat, OpenAI chat completions, legacy completions,
// "outputs" style gateways, Ollama /api/generate.
var textPaths = []string{
	"message.content",
	"choices.0.message.content",
	"choices.0.text",
	"outputs.0.message.content",
	"outputs.0.text",
	"response",
}

// ExtractText pulls the reply text out of a raw backend response.
//
// The first path in textPaths that holds a string wins, even an empty one,
// since an empty reply is still a well-formed reply. When the body is not
// JSON or matches none of the paths, the raw body is returned as a string.
// ExtractText never panics.
func ExtractText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if !gjson.ValidBytes(raw) {
		return string(raw)
	}
	for _, p := range textPaths {
		if r := gjson.GetBytes(raw, p); r.Type == gjson.String {
			return r.Str
		}
	}
	return strings.TrimSpace(string(raw))
}
