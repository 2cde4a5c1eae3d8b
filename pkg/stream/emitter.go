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

// Package stream turns reply descriptors into timed sequences of chunks.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const (
	DefaultInterChunkDelay = 100 * time.Millisecond
	DefaultToolCallDelay   = 200 * time.Millisecond
)

// DelayPolicy controls the pauses between emitted chunks.
type DelayPolicy struct {
	// InterChunk is waited after every text delta.
	InterChunk time.Duration
	// ToolCall is waited after the tool-call chunk.
	ToolCall time.Duration
	// Clock defaults to the real clock.
	Clock clock.Clock
}

// DefaultDelayPolicy returns the pacing of a human-readable stream.
func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{
		InterChunk: DefaultInterChunkDelay,
		ToolCall:   DefaultToolCallDelay,
		Clock:      clock.RealClock{},
	}
}

// NoDelay emits chunks back to back.
func NoDelay() DelayPolicy { return DelayPolicy{} }

func (p DelayPolicy) after(c types.Chunk) time.Duration {
	switch c.Kind {
	case types.ChunkTextDelta:
		return p.InterChunk
	case types.ChunkToolCall:
		return p.ToolCall
	default:
		return 0
	}
}

func (p DelayPolicy) clock() clock.Clock {
	if p.Clock == nil {
		return clock.RealClock{}
	}
	return p.Clock
}

// Sink receives emitted chunks in order.
type Sink interface {
	WriteChunk(c types.Chunk) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(c types.Chunk) error

func (f SinkFunc) WriteChunk(c types.Chunk) error { return f(c) }

// Collector is a Sink that keeps every chunk it receives.
type Collector struct {
	Chunks []types.Chunk
}

func (c *Collector) WriteChunk(chunk types.Chunk) error {
	c.Chunks = append(c.Chunks, chunk)
	return nil
}

// Text concatenates the text deltas collected so far.
func (c *Collector) Text() string {
	var b strings.Builder
	for _, chunk := range c.Chunks {
		if chunk.Kind == types.ChunkTextDelta {
			b.WriteString(chunk.Text)
		}
	}
	return b.String()
}

// Chunks returns the chunk sequence for d. Each call to the returned sequence
// starts over and generates fresh tool call ids. Descriptors rejected by
// Validate yield nothing.
func Chunks(d types.Descriptor) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		if Validate(d) != nil {
			return
		}
		switch d.Kind() {
		case types.KindStructured:
			yield(types.Chunk{Kind: types.ChunkObject, Fields: d.Fields()})
			return
		case types.KindToolCall:
			id := "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			if !yield(types.Chunk{
				Kind:       types.ChunkToolCall,
				ToolCallID: id,
				ToolName:   d.ToolName(),
				Args:       marshalArgs(d.ToolArgs()),
			}) {
				return
			}
			if d.ToolResult() != nil {
				if !yield(types.Chunk{
					Kind:       types.ChunkToolResult,
					ToolCallID: id,
					ToolName:   d.ToolName(),
					Result:     d.ToolResult(),
				}) {
					return
				}
			}
		}
		for _, word := range strings.Fields(d.Text()) {
			// Every word keeps a trailing space, the last one included.
			if !yield(types.TextDelta(word + " ")) {
				return
			}
		}
		if !yield(types.Finish(types.FinishReasonStop)) {
			return
		}
		yield(types.Done())
	}
}

// Collect returns every chunk of d as a slice.
func Collect(d types.Descriptor) []types.Chunk {
	var out []types.Chunk
	for c := range Chunks(d) {
		out = append(out, c)
	}
	return out
}

// Emit writes the chunks of d to sink, pausing between them according to
// policy. It stops at the first failed write or when ctx is done before the
// sequence is complete and reports ErrSinkClosed; nothing is retried. A sink
// that cannot encode a chunk reports ErrMalformedDescriptor instead.
func Emit(ctx context.Context, d types.Descriptor, sink Sink, policy DelayPolicy) error {
	if err := Validate(d); err != nil {
		return err
	}
	clk := policy.clock()
	for c := range Chunks(d) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkClosed, err)
		}
		if err := sink.WriteChunk(c); err != nil {
			if errors.Is(err, ErrMalformedDescriptor) {
				return fmt.Errorf("write %s chunk: %w", c.Kind, err)
			}
			return fmt.Errorf("%w: write %s chunk: %w", ErrSinkClosed, c.Kind, err)
		}
		if err := wait(ctx, clk, policy.after(c)); err != nil {
			return fmt.Errorf("%w: %w", ErrSinkClosed, err)
		}
	}
	return nil
}

func wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

func marshalArgs(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		// channels and funcs have no JSON form
		return "{}"
	}
	return string(b)
}
