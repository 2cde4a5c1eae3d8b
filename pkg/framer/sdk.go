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

	"github.com/tidwall/sjson"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const SDKName = "sdk"

// Frame tags of the SDK data stream.
const (
	TagText       = '0'
	TagToolCall   = '9'
	TagToolResult = 'a'
	TagEnd        = 'e'
	TagDone       = 'd'
)

// SDK frames chunks as "<tag>:<json>\n" lines, the data stream format read by
// AI SDK front ends.
type SDK struct {
	completionTokens int
	finishReason     string
}

func NewSDK() *SDK { return &SDK{finishReason: types.FinishReasonStop} }

func (s *SDK) Name() string        { return SDKName }
func (s *SDK) ContentType() string { return ContentType }

func (s *SDK) Frame(c types.Chunk) ([]byte, error) {
	var (
		tag     byte
		payload []byte
		err     error
	)
	switch c.Kind {
	case types.ChunkTextDelta:
		s.completionTokens++
		tag = TagText
		payload, err = json.Marshal(c.Text)
	case types.ChunkToolCall:
		tag = TagToolCall
		payload, err = sjson.SetBytes(nil, "toolCallId", c.ToolCallID)
		if err == nil {
			payload, err = sjson.SetBytes(payload, "toolName", c.ToolName)
		}
		if err == nil {
			args := c.Args
			if !json.Valid([]byte(args)) {
				args = "{}"
			}
			payload, err = sjson.SetRawBytes(payload, "args", []byte(args))
		}
	case types.ChunkToolResult:
		tag = TagToolResult
		payload, err = sjson.SetBytes(nil, "toolCallId", c.ToolCallID)
		if err == nil {
			payload, err = sjson.SetBytes(payload, "result", c.Result)
		}
	case types.ChunkFinish:
		s.finishReason = c.FinishReason
		tag = TagEnd
		payload, err = s.finishPayload()
		if err == nil {
			payload, err = sjson.SetBytes(payload, "isContinued", false)
		}
	case types.ChunkDone:
		tag = TagDone
		payload, err = s.finishPayload()
	case types.ChunkObject:
		return objectFrame(c.Fields)
	default:
		return nil, fmt.Errorf("sdk framer: unsupported chunk kind %q", c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("sdk framer: %w", err)
	}

	out := make([]byte, 0, len(payload)+3)
	out = append(out, tag, ':')
	out = append(out, payload...)
	return append(out, '\n'), nil
}

func (s *SDK) finishPayload() ([]byte, error) {
	payload, err := sjson.SetBytes(nil, "finishReason", s.finishReason)
	if err != nil {
		return nil, err
	}
	payload, err = sjson.SetBytes(payload, "usage.promptTokens", 0)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(payload, "usage.completionTokens", s.completionTokens)
}
