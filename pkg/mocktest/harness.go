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

// Package mocktest starts a mock LLM upstream scoped to a single test.
//
//	h := mocktest.Start(t, mocktest.WithPatterns(patterns))
//	client := openai.NewClient(option.WithBaseURL(h.BaseURL()), option.WithAPIKey("test"))
//
// Every harness owns its patterns and its server; it is torn down by
// t.Cleanup, so tests never share upstream state.
package mocktest

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/openshift-pipelines/llm-mockserver/pkg/mockserver"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// Harness is a running mock upstream.
type Harness struct {
	server *mockserver.Server
	http   *httptest.Server
}

type Option func(*mockserver.Config)

func WithPatterns(p types.PatternMap) Option {
	return func(c *mockserver.Config) { c.Patterns = p }
}

func WithFallback(d types.Descriptor) Option {
	return func(c *mockserver.Config) { c.Fallback = &d }
}

// WithFraming selects the framing of streamed replies ("openai" by default).
func WithFraming(name string) Option {
	return func(c *mockserver.Config) { c.Framing = name }
}

// WithDelay paces streamed replies. Harnesses stream without delay by default.
func WithDelay(p stream.DelayPolicy) Option {
	return func(c *mockserver.Config) { c.Delay = p }
}

// Start runs a mock upstream until the test ends.
func Start(t testing.TB, opts ...Option) *Harness {
	t.Helper()
	cfg := mockserver.Config{
		Delay:  stream.NoDelay(),
		Logger: zaptest.NewLogger(t).Sugar(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	s, err := mockserver.New(cfg)
	if err != nil {
		t.Fatalf("failed to create mock upstream: %v", err)
	}
	h := &Harness{server: s, http: httptest.NewServer(s.Handler())}
	t.Cleanup(h.http.Close)
	return h
}

// URL is the root of the mock upstream.
func (h *Harness) URL() string { return h.http.URL }

// BaseURL is the OpenAI-style API root, ending in /v1/.
func (h *Harness) BaseURL() string { return h.http.URL + "/v1/" }

// Prompts returns the prompts received by the upstream.
func (h *Harness) Prompts() []string { return h.server.Prompts() }

// Reset forgets the recorded prompts.
func (h *Harness) Reset() { h.server.Reset() }
