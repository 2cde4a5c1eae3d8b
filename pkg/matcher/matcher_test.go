// Copyright 2025 The Tekton Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package matcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

func TestMatch(t *testing.T) {
	weather := types.NewToolCall("getWeather", map[string]any{"location": "San Francisco, CA"},
		"The weather in San Francisco is currently 72F and sunny")
	greeting := types.NewText("hi there")
	fallback := DefaultFallback()

	tests := []struct {
		name     string
		prompt   string
		patterns types.PatternMap
		want     types.Descriptor
	}{
		{
			name:     "substring match",
			prompt:   "What is the weather like today?",
			patterns: types.PatternMap{}.Add("weather", weather),
			want:     weather,
		},
		{
			name:     "case insensitive on both sides",
			prompt:   "WHAT IS THE WEATHER",
			patterns: types.PatternMap{}.Add("Weather", weather),
			want:     weather,
		},
		{
			name:     "earliest inserted wins",
			prompt:   "hello, what is the weather",
			patterns: types.PatternMap{}.Add("hello", greeting).Add("weather", weather),
			want:     greeting,
		},
		{
			name:     "duplicate keys keep first",
			prompt:   "weather please",
			patterns: types.PatternMap{}.Add("weather", weather).Add("weather", greeting),
			want:     weather,
		},
		{
			name:     "no match falls back",
			prompt:   "tell me a joke",
			patterns: types.PatternMap{}.Add("weather", weather),
			want:     fallback,
		},
		{
			name:     "empty map falls back",
			prompt:   "anything",
			patterns: types.PatternMap{},
			want:     fallback,
		},
		{
			name:     "nil map falls back",
			prompt:   "",
			patterns: nil,
			want:     fallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.prompt, tt.patterns, fallback)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchIsPure(t *testing.T) {
	patterns := DemoPatterns()
	first := Match("say hello", patterns, DefaultFallback())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Match("say hello", patterns, DefaultFallback()))
	}
	assert.Len(t, patterns, len(DemoPatterns()))
}

const patternFile = `
default:
  text: "No canned reply."
patterns:
  - match: weather
    tool_call:
      name: getWeather
      args:
        location: San Francisco, CA
        units: {temperature: F}
      final_response: The weather in San Francisco is currently 72F and sunny
      result: {temperature: 72}
  - match: profile
    structured:
      name: Luna Martinez
      age: 28
      tags: [a, b]
  - match: hello
    text: Hello!
`

func TestLoad(t *testing.T) {
	patterns, fallback, err := Load(strings.NewReader(patternFile))
	require.NoError(t, err)
	require.Len(t, patterns, 3)

	assert.Equal(t, types.KindText, fallback.Kind())
	assert.Equal(t, "No canned reply.", fallback.Content())

	assert.Equal(t, "weather", patterns[0].Pattern)
	w := patterns[0].Descriptor
	assert.Equal(t, types.KindToolCall, w.Kind())
	assert.Equal(t, "getWeather", w.ToolName())
	assert.Equal(t, map[string]any{
		"location": "San Francisco, CA",
		"units":    map[string]any{"temperature": "F"},
	}, w.ToolArgs())
	assert.Equal(t, map[string]any{"temperature": 72}, w.ToolResult())

	p := patterns[1].Descriptor
	assert.Equal(t, types.KindStructured, p.Kind())
	assert.Equal(t, map[string]any{"name": "Luna Martinez", "age": 28, "tags": []any{"a", "b"}}, p.Fields())

	assert.Equal(t, "Hello!", patterns[2].Descriptor.Content())
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"missing match":   "patterns:\n  - text: hi\n",
		"no reply":        "patterns:\n  - match: hi\n",
		"two replies":     "patterns:\n  - match: hi\n    text: hi\n    structured: {a: 1}\n",
		"unknown field":   "patterns:\n  - match: hi\n    txt: hi\n",
		"malformed yaml":  "patterns: [",
		"invalid default": "default: {}\npatterns: []\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileDefaultsFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("patterns:\n  - match: hi\n    text: hello\n"), 0o600))

	patterns, fallback, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
	assert.Equal(t, DefaultFallback(), fallback)

	_, _, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedPatternFileMatchesDemo(t *testing.T) {
	patterns, fallback, err := LoadFile(filepath.Join("..", "..", "config", "patterns.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DemoPatterns(), patterns)
	assert.Equal(t, DefaultFallback(), fallback)
}
