package perception

import (
	"encoding/json"
	"strings"

	"localcoder/internal/logging"
	"localcoder/internal/types"
)

type callEnvelope struct {
	FunctionCall *struct {
		Name      *string         `json:"name"`
		Arguments types.Arguments `json:"arguments"`
	} `json:"function_call"`
}

// ParseFunctionCall looks for {"function_call": {"name": ..., "arguments": {...}}}
// in model output. It slices from the first '{' to the last '}' and decodes
// that span; anything that does not decode to a named call is reported as
// no call. Prose containing extra braces therefore yields no call rather
// than a guessed one.
func ParseFunctionCall(text string) (types.FunctionCall, bool) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return types.FunctionCall{}, false
	}

	var env callEnvelope
	if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
		logging.PerceptionDebug("no function call: %v", err)
		return types.FunctionCall{}, false
	}
	if env.FunctionCall == nil || env.FunctionCall.Name == nil {
		return types.FunctionCall{}, false
	}

	args := env.FunctionCall.Arguments
	if args == nil {
		args = types.Arguments{}
	}
	logging.PerceptionDebug("function call parsed: %s (%d args)", *env.FunctionCall.Name, len(args))
	return types.FunctionCall{Name: *env.FunctionCall.Name, Arguments: args}, true
}
