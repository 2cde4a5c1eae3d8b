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

package framer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const (
	ProviderName = "openai"
	DefaultModel = "gpt-4o-mini"

	doneFrame = "data: [DONE]\n\n"
)

// Provider frames chunks the way OpenAI's chat completions stream does:
// one "data: <json>" event per chunk and a literal [DONE] sentinel.
type Provider struct {
	id      string
	model   string
	created int64
	started bool
}

// NewProvider returns a provider framer for one stream. All frames share the
// same completion id.
func NewProvider(model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		id:      "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		model:   model,
		created: time.Now().Unix(),
	}
}

func (p *Provider) Name() string        { return ProviderName }
func (p *Provider) ContentType() string { return ContentType }

type completionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []chunkToolCall `json:"tool_calls,omitempty"`
}

type chunkToolCall struct {
	Index    int               `json:"index"`
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Function chunkToolFunction `json:"function"`
}

type chunkToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (p *Provider) Frame(c types.Chunk) ([]byte, error) {
	var delta chunkDelta
	var finish *string
	switch c.Kind {
	case types.ChunkTextDelta:
		text := c.Text
		delta.Content = &text
	case types.ChunkToolCall:
		delta.ToolCalls = []chunkToolCall{{
			ID:       c.ToolCallID,
			Type:     "function",
			Function: chunkToolFunction{Name: c.ToolName, Arguments: c.Args},
		}}
	case types.ChunkFinish:
		reason := c.FinishReason
		finish = &reason
	case types.ChunkDone:
		return []byte(doneFrame), nil
	case types.ChunkToolResult:
		// tool results are produced by the client in this protocol
		return nil, nil
	case types.ChunkObject:
		return objectFrame(c.Fields)
	default:
		return nil, fmt.Errorf("provider framer: unsupported chunk kind %q", c.Kind)
	}

	if !p.started {
		delta.Role = "assistant"
		p.started = true
	}
	b, err := json.Marshal(completionChunk{
		ID:      p.id,
		Object:  "chat.completion.chunk",
		Created: p.created,
		Model:   p.model,
		Choices: []chunkChoice{{Delta: delta, FinishReason: finish}},
	})
	if err != nil {
		return nil, fmt.Errorf("provider framer: %w", err)
	}
	out := make([]byte, 0, len(b)+8)
	out = append(out, "data: "...)
	out = append(out, b...)
	return append(out, '\n', '\n'), nil
}

func objectFrame(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode object: %w", err)
	}
	return append(b, '\n'), nil
}
