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
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

func weather() types.Descriptor {
	return types.NewToolCall("getWeather", map[string]any{"location": "San Francisco, CA"},
		"The weather in San Francisco is currently 72F and sunny").
		WithToolResult(map[string]any{"temperature": 72})
}

func render(t *testing.T, f Framer, d types.Descriptor) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, stream.Emit(context.Background(), d, NewWriter(&buf, f), stream.NoDelay()))
	return buf.String()
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"openai", "sdk"}, Names())
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())
		assert.Equal(t, "text/plain; charset=utf-8", f.ContentType())
	}
	_, err := New("xml")
	assert.ErrorIs(t, err, ErrUnknownFramer)
}

func TestProviderFraming(t *testing.T) {
	out := render(t, NewProvider("gpt-test"), weather())

	events := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n\n")
	require.Equal(t, "data: [DONE]", events[len(events)-1])

	var payloads []gjson.Result
	for _, ev := range events[:len(events)-1] {
		require.True(t, strings.HasPrefix(ev, "data: "), ev)
		raw := strings.TrimPrefix(ev, "data: ")
		require.True(t, gjson.Valid(raw), raw)
		payloads = append(payloads, gjson.Parse(raw))
	}

	// tool call, ten words, finish; the tool result has no provider frame
	require.Len(t, payloads, 12)
	id := payloads[0].Get("id").String()
	assert.True(t, strings.HasPrefix(id, "chatcmpl-"))
	for _, p := range payloads {
		assert.Equal(t, id, p.Get("id").String())
		assert.Equal(t, "chat.completion.chunk", p.Get("object").String())
		assert.Equal(t, "gpt-test", p.Get("model").String())
	}

	call := payloads[0].Get("choices.0.delta")
	assert.Equal(t, "assistant", call.Get("role").String())
	assert.Equal(t, "getWeather", call.Get("tool_calls.0.function.name").String())
	assert.Equal(t, "function", call.Get("tool_calls.0.type").String())
	assert.Equal(t, `{"location":"San Francisco, CA"}`, call.Get("tool_calls.0.function.arguments").String())
	assert.Equal(t, gjson.Null, payloads[0].Get("choices.0.finish_reason").Type)

	var text strings.Builder
	for _, p := range payloads[1:11] {
		assert.False(t, p.Get("choices.0.delta.role").Exists())
		text.WriteString(p.Get("choices.0.delta.content").String())
	}
	assert.Equal(t, "The weather in San Francisco is currently 72F and sunny ", text.String())

	last := payloads[11]
	assert.Equal(t, "stop", last.Get("choices.0.finish_reason").String())
	assert.False(t, last.Get("choices.0.delta.content").Exists())
}

func TestSDKFraming(t *testing.T) {
	out := render(t, NewSDK(), weather())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 14)

	assert.True(t, strings.HasPrefix(lines[0], "9:"), lines[0])
	call := gjson.Parse(strings.TrimPrefix(lines[0], "9:"))
	assert.Equal(t, "getWeather", call.Get("toolName").String())
	assert.Equal(t, "San Francisco, CA", call.Get("args.location").String())

	assert.True(t, strings.HasPrefix(lines[1], "a:"), lines[1])
	result := gjson.Parse(strings.TrimPrefix(lines[1], "a:"))
	assert.Equal(t, call.Get("toolCallId").String(), result.Get("toolCallId").String())
	assert.Equal(t, int64(72), result.Get("result.temperature").Int())

	assert.Equal(t, `0:"The "`, lines[2])
	assert.Equal(t, `0:"sunny "`, lines[11])

	assert.Equal(t, `e:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":10},"isContinued":false}`, lines[12])
	assert.Equal(t, `d:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":10}}`, lines[13])
}

func TestSDKEscapesText(t *testing.T) {
	b, err := NewSDK().Frame(types.TextDelta(`say "hi"\ `))
	require.NoError(t, err)
	assert.Equal(t, "0:\"say \\\"hi\\\"\\\\ \"\n", string(b))
}

func TestObjectFrames(t *testing.T) {
	d := types.NewStructured(map[string]any{"name": "Luna Martinez", "age": 28})
	for _, name := range Names() {
		f, err := New(name)
		require.NoError(t, err)
		out := render(t, f, d)
		assert.JSONEq(t, `{"name":"Luna Martinez","age":28}`, out)
		assert.True(t, strings.HasSuffix(out, "}\n"))
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriterReportsSinkClosed(t *testing.T) {
	broken := errors.New("broken pipe")
	err := stream.Emit(context.Background(), types.NewText("hello there"),
		NewWriter(failingWriter{err: broken}, NewSDK()), stream.NoDelay())
	assert.ErrorIs(t, err, stream.ErrSinkClosed)
	assert.ErrorIs(t, err, broken)
}

func TestWriterFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec, NewSDK())
	require.NoError(t, w.WriteChunk(types.TextDelta("hi ")))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "0:\"hi \"\n", rec.Body.String())
}

func TestWriterReportsUnencodableChunk(t *testing.T) {
	var buf bytes.Buffer
	d := types.NewToolCall("getWeather", nil, "fine").WithToolResult(make(chan int))
	err := stream.Emit(context.Background(), d, NewWriter(&buf, NewSDK()), stream.NoDelay())
	require.Error(t, err)
	assert.ErrorIs(t, err, stream.ErrMalformedDescriptor)
	assert.NotErrorIs(t, err, stream.ErrSinkClosed)
	// the tool call frame was already written
	assert.True(t, strings.HasPrefix(buf.String(), "9:"), buf.String())
}
