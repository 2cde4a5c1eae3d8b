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

// Package framer serializes chunks into wire formats.
package framer

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// ContentType is used by every framing.
const ContentType = "text/plain; charset=utf-8"

var ErrUnknownFramer = errors.New("unknown framer")

// Framer renders one chunk as wire bytes. An empty result means the chunk has
// no representation in that format.
type Framer interface {
	Name() string
	ContentType() string
	Frame(c types.Chunk) ([]byte, error)
}

var registry = map[string]func(model string) Framer{
	ProviderName: func(model string) Framer { return NewProvider(model) },
	SDKName:      func(string) Framer { return NewSDK() },
}

// New returns a fresh framer by name. Framers keep per-stream state, so use
// one per response.
func New(name string) (Framer, error) {
	return NewForModel(name, "")
}

// NewForModel is New with the model name reported by framings that carry one.
func NewForModel(name, model string) (Framer, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownFramer, name, Names())
	}
	return f(model), nil
}

// Names lists the registered framings.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Writer is a stream.Sink that frames chunks onto an io.Writer.
type Writer struct {
	w       io.Writer
	framer  Framer
	flusher http.Flusher
}

// NewWriter wraps w. When w is an http.Flusher every frame is flushed.
func NewWriter(w io.Writer, f Framer) *Writer {
	fw := &Writer{w: w, framer: f}
	if fl, ok := w.(http.Flusher); ok {
		fw.flusher = fl
	}
	return fw
}

func (fw *Writer) WriteChunk(c types.Chunk) error {
	b, err := fw.framer.Frame(c)
	if err != nil {
		return fmt.Errorf("%w: %w", stream.ErrMalformedDescriptor, err)
	}
	if len(b) == 0 {
		return nil
	}
	if _, err := fw.w.Write(b); err != nil {
		return fmt.Errorf("%w: %w", stream.ErrSinkClosed, err)
	}
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return nil
}
