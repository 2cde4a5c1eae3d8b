package responder

import (
	"context"
	"fmt"
	"sort"
)

// Tool is a function the model may ask the server to run.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments.
	Parameters map[string]any
	Call       func(ctx context.Context, args map[string]any) (any, error)
}

// Tools indexes tools by name.
type Tools map[string]Tool

// DefaultTools returns the tools offered to the model by the tool-calling chat.
func DefaultTools() Tools {
	return Tools{"getWeather": weatherTool()}
}

// Names returns the tool names in a stable order.
func (ts Tools) Names() []string {
	out := make([]string, 0, len(ts))
	for n := range ts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Call runs the named tool.
func (ts Tools) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := ts[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.Call(ctx, args)
}

func weatherTool() Tool {
	return Tool{
		Name:        "getWeather",
		Description: "Get the current weather for a location",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City and state, e.g. San Francisco, CA",
				},
			},
			"required": []string{"location"},
		},
		Call: func(_ context.Context, args map[string]any) (any, error) {
			loc, _ := args["location"].(string)
			if loc == "" {
				return nil, fmt.Errorf("getWeather: location is required")
			}
			// canned reading; the demo has no weather backend
			return map[string]any{
				"location":    loc,
				"temperature": 72,
				"unit":        "F",
				"conditions":  "sunny",
			}, nil
		},
	}
}
