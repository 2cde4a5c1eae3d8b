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

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/openshift-pipelines/llm-mockserver/pkg/matcher"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const weatherReply = "The weather in San Francisco is currently 72F and sunny"

func weatherDescriptor() types.Descriptor {
	return types.NewToolCall("getWeather", map[string]any{"location": "San Francisco, CA"}, weatherReply)
}

func kinds(chunks []types.Chunk) []types.ChunkKind {
	out := make([]types.ChunkKind, len(chunks))
	for i, c := range chunks {
		out[i] = c.Kind
	}
	return out
}

// assertFraming checks the finish marker and sentinel of a streamed sequence.
func assertFraming(t *testing.T, chunks []types.Chunk) {
	t.Helper()
	finishes := 0
	for _, c := range chunks {
		if c.Kind == types.ChunkFinish {
			finishes++
		}
	}
	require.Equal(t, 1, finishes, "exactly one finish marker")
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, types.ChunkFinish, chunks[len(chunks)-2].Kind)
	assert.Equal(t, types.FinishReasonStop, chunks[len(chunks)-2].FinishReason)
	assert.Equal(t, types.ChunkDone, chunks[len(chunks)-1].Kind)
}

func TestWeatherScenario(t *testing.T) {
	patterns := types.PatternMap{}.Add("weather", weatherDescriptor())
	d := matcher.Match("What is the weather like today?", patterns, matcher.DefaultFallback())
	require.Equal(t, types.KindToolCall, d.Kind())

	var sink Collector
	require.NoError(t, Emit(context.Background(), d, &sink, NoDelay()))
	chunks := sink.Chunks

	first := chunks[0]
	require.Equal(t, types.ChunkToolCall, first.Kind)
	assert.Equal(t, "getWeather", first.ToolName)
	assert.True(t, strings.HasPrefix(first.ToolCallID, "call_"))
	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(first.Args), &args))
	assert.Equal(t, "San Francisco, CA", args["location"])

	words := strings.Fields(weatherReply)
	deltas := chunks[1 : len(chunks)-2]
	require.Len(t, deltas, len(words))
	for i, c := range deltas {
		assert.Equal(t, types.ChunkTextDelta, c.Kind)
		assert.Equal(t, words[i]+" ", c.Text)
	}
	assertFraming(t, chunks)
}

func TestEmptyPatternMapStreamsFallback(t *testing.T) {
	d := matcher.Match("anything", types.PatternMap{}, matcher.DefaultFallback())

	var sink Collector
	require.NoError(t, Emit(context.Background(), d, &sink, NoDelay()))
	assert.Equal(t, matcher.FallbackMessage+" ", sink.Text())
	assertFraming(t, sink.Chunks)
	for _, c := range sink.Chunks {
		assert.NotEqual(t, types.ChunkToolCall, c.Kind)
	}
}

func TestStructuredIsOneUnit(t *testing.T) {
	fields := map[string]any{"name": "Luna Martinez", "age": 28}
	var sink Collector
	require.NoError(t, Emit(context.Background(), types.NewStructured(fields), &sink, DefaultDelayPolicy()))
	require.Len(t, sink.Chunks, 1)
	assert.Equal(t, types.ChunkObject, sink.Chunks[0].Kind)
	assert.Equal(t, fields, sink.Chunks[0].Fields)
}

func TestTextRoundTrip(t *testing.T) {
	inputs := []string{
		"hello",
		"Hello! How can I help you today?",
		"  leading and   irregular\tspacing\nacross lines ",
		weatherReply,
	}
	for _, in := range inputs {
		chunks := Collect(types.NewText(in))
		var words []string
		for _, c := range chunks {
			if c.Kind != types.ChunkTextDelta {
				continue
			}
			require.True(t, strings.HasSuffix(c.Text, " "))
			words = append(words, strings.TrimSuffix(c.Text, " "))
		}
		assert.Equal(t, strings.Join(strings.Fields(in), " "), strings.Join(words, " "))
		assertFraming(t, chunks)
	}
}

func TestEmptyTextStillTerminates(t *testing.T) {
	chunks := Collect(types.NewText(""))
	assert.Equal(t, []types.ChunkKind{types.ChunkFinish, types.ChunkDone}, kinds(chunks))

	chunks = Collect(types.NewToolCall("noop", nil, ""))
	assert.Equal(t, []types.ChunkKind{types.ChunkToolCall, types.ChunkFinish, types.ChunkDone}, kinds(chunks))
	assert.Equal(t, "{}", chunks[0].Args)
}

func TestToolResultFollowsToolCall(t *testing.T) {
	d := weatherDescriptor().WithToolResult(map[string]any{"temperature": 72})
	chunks := Collect(d)
	require.Equal(t, types.ChunkToolCall, chunks[0].Kind)
	require.Equal(t, types.ChunkToolResult, chunks[1].Kind)
	assert.Equal(t, chunks[0].ToolCallID, chunks[1].ToolCallID)
	assert.Equal(t, map[string]any{"temperature": 72}, chunks[1].Result)
	for _, c := range chunks[2 : len(chunks)-2] {
		assert.Equal(t, types.ChunkTextDelta, c.Kind)
	}
}

func TestChunksRestartable(t *testing.T) {
	seq := Chunks(weatherDescriptor())
	var a, b []types.Chunk
	for c := range seq {
		a = append(a, c)
	}
	for c := range seq {
		b = append(b, c)
	}
	assert.Equal(t, kinds(a), kinds(b))
	assert.NotEqual(t, a[0].ToolCallID, b[0].ToolCallID)
}

func TestMalformedDescriptor(t *testing.T) {
	tests := map[string]types.Descriptor{
		"tool call without name": types.NewToolCall("", map[string]any{"a": 1}, "reply"),
		"zero value":             {},
	}
	for name, d := range tests {
		t.Run(name, func(t *testing.T) {
			writes := 0
			err := Emit(context.Background(), d, SinkFunc(func(types.Chunk) error {
				writes++
				return nil
			}), NoDelay())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedDescriptor)
			var mde *MalformedDescriptorError
			assert.True(t, errors.As(err, &mde))
			assert.Zero(t, writes)
			assert.Empty(t, Collect(d))
		})
	}
}

func TestSinkClosedAbortsImmediately(t *testing.T) {
	closed := errors.New("client went away")
	writes := 0
	err := Emit(context.Background(), types.NewText("one two three four"), SinkFunc(func(types.Chunk) error {
		writes++
		if writes == 2 {
			return closed
		}
		return nil
	}), NoDelay())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.ErrorIs(t, err, closed)
	assert.Equal(t, 2, writes)
}

func TestCancelledContextStopsAtDelayPoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sink Collector
	policy := DelayPolicy{InterChunk: time.Hour, ToolCall: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Emit(ctx, types.NewText("one two three"), &sink, policy)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSinkClosed)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("emission did not stop after cancellation")
	}
	assert.LessOrEqual(t, len(sink.Chunks), 1)
}

func TestEmitHonoursDelays(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	policy := DelayPolicy{InterChunk: 100 * time.Millisecond, ToolCall: 200 * time.Millisecond, Clock: fc}

	var sink Collector
	done := make(chan error, 1)
	go func() {
		done <- Emit(context.Background(), types.NewToolCall("getWeather", nil, "two words"), &sink, policy)
	}()

	start := fc.Now()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			// 200ms after the tool call, 100ms after each of the two words.
			assert.Equal(t, 400*time.Millisecond, fc.Since(start))
			assert.Equal(t,
				[]types.ChunkKind{types.ChunkToolCall, types.ChunkTextDelta, types.ChunkTextDelta, types.ChunkFinish, types.ChunkDone},
				kinds(sink.Chunks))
			return
		case <-deadline:
			t.Fatal("emission did not finish")
		default:
			if fc.HasWaiters() {
				fc.Step(100 * time.Millisecond)
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func TestCancelAfterLastChunkIsNotAnAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []types.ChunkKind
	err := Emit(ctx, types.NewText("one two"), SinkFunc(func(c types.Chunk) error {
		got = append(got, c.Kind)
		if c.Kind == types.ChunkDone {
			cancel()
		}
		return nil
	}), NoDelay())
	require.NoError(t, err)
	assert.Equal(t, []types.ChunkKind{types.ChunkTextDelta, types.ChunkTextDelta, types.ChunkFinish, types.ChunkDone}, got)
}

func TestCancelMidSequenceIsAnAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writes := 0
	err := Emit(ctx, types.NewText("one two"), SinkFunc(func(types.Chunk) error {
		writes++
		if writes == 1 {
			cancel()
		}
		return nil
	}), NoDelay())
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, writes)
}

func TestSinkEncodingFailureIsMalformed(t *testing.T) {
	failure := fmt.Errorf("%w: cannot encode", ErrMalformedDescriptor)
	err := Emit(context.Background(), types.NewText("one"), SinkFunc(func(types.Chunk) error {
		return failure
	}), NoDelay())
	assert.ErrorIs(t, err, ErrMalformedDescriptor)
	assert.NotErrorIs(t, err, ErrSinkClosed)
}
