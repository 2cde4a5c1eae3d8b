package matcher

import "github.com/openshift-pipelines/llm-mockserver/pkg/types"

// DemoPatterns returns the scenarios served when no pattern file is configured.
func DemoPatterns() types.PatternMap {
	return types.PatternMap{}.
		Add("weather", types.NewToolCall("getWeather",
			map[string]any{"location": "San Francisco, CA"},
			"The weather in San Francisco is currently 72F and sunny",
		).WithToolResult(map[string]any{"temperature": 72, "unit": "F", "conditions": "sunny"})).
		Add("profile", types.NewStructured(map[string]any{
			"name":      "Luna Martinez",
			"age":       28,
			"email":     "luna.martinez@example.com",
			"interests": []any{"astronomy", "hiking", "photography"},
		})).
		Add("hello", types.NewText("Hello! How can I help you today?")).
		Add("story", types.NewText("Once upon a time a tiny server answered every request with a streamed story."))
}
