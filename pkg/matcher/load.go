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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// File is the on-disk layout of a pattern file:
//
//	default:
//	  text: "Sorry, I can't help with that."
//	patterns:
//	  - match: weather
//	    tool_call:
//	      name: getWeather
//	      args: {location: "San Francisco, CA"}
//	      final_response: "The weather in San Francisco is currently 72F and sunny"
//	  - match: profile
//	    structured: {name: Luna Martinez, age: 28}
type File struct {
	Default  *Entry  `yaml:"default,omitempty"`
	Patterns []Entry `yaml:"patterns"`
}

// Entry is one reply in a pattern file. Exactly one of Text, ToolCall or
// Structured must be set.
type Entry struct {
	Match      string                      `yaml:"match,omitempty"`
	Text       *string                     `yaml:"text,omitempty"`
	ToolCall   *ToolCallEntry              `yaml:"tool_call,omitempty"`
	Structured map[interface{}]interface{} `yaml:"structured,omitempty"`
}

type ToolCallEntry struct {
	Name          string                      `yaml:"name"`
	Args          map[interface{}]interface{} `yaml:"args,omitempty"`
	FinalResponse string                      `yaml:"final_response"`
	Result        interface{}                 `yaml:"result,omitempty"`
}

// LoadFile reads a pattern file from disk.
func LoadFile(path string) (types.PatternMap, types.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.Descriptor{}, fmt.Errorf("open pattern file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes a pattern file. The returned fallback is DefaultFallback when the
// file has no default entry.
func Load(r io.Reader) (types.PatternMap, types.Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, types.Descriptor{}, fmt.Errorf("read pattern file: %w", err)
	}
	var file File
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, types.Descriptor{}, fmt.Errorf("decode pattern file: %w", err)
	}

	fallback := DefaultFallback()
	if file.Default != nil {
		if fallback, err = file.Default.descriptor(); err != nil {
			return nil, types.Descriptor{}, fmt.Errorf("default: %w", err)
		}
	}

	patterns := make(types.PatternMap, 0, len(file.Patterns))
	for i, e := range file.Patterns {
		if e.Match == "" {
			return nil, types.Descriptor{}, fmt.Errorf("patterns[%d]: match is required", i)
		}
		d, err := e.descriptor()
		if err != nil {
			return nil, types.Descriptor{}, fmt.Errorf("patterns[%d] (%s): %w", i, e.Match, err)
		}
		patterns = patterns.Add(e.Match, d)
	}
	return patterns, fallback, nil
}

func (e Entry) descriptor() (types.Descriptor, error) {
	set := 0
	if e.Text != nil {
		set++
	}
	if e.ToolCall != nil {
		set++
	}
	if e.Structured != nil {
		set++
	}
	if set != 1 {
		return types.Descriptor{}, fmt.Errorf("exactly one of text, tool_call or structured must be set, got %d", set)
	}

	switch {
	case e.Text != nil:
		return types.NewText(*e.Text), nil
	case e.ToolCall != nil:
		args, _ := normalize(e.ToolCall.Args).(map[string]any)
		d := types.NewToolCall(e.ToolCall.Name, args, e.ToolCall.FinalResponse)
		if e.ToolCall.Result != nil {
			d = d.WithToolResult(normalize(e.ToolCall.Result))
		}
		return d, nil
	default:
		fields, _ := normalize(e.Structured).(map[string]any)
		return types.NewStructured(fields), nil
	}
}

// normalize converts the map[interface{}]interface{} values produced by yaml.v2
// into map[string]any so they can be JSON encoded.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
