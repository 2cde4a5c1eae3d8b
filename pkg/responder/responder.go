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

package responder

import (
	"context"
	"errors"

	"github.com/openshift-pipelines/llm-mockserver/pkg/matcher"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// Kind selects which kind of reply the caller expects.
type Kind string

const (
	KindChat    Kind = "chat"
	KindTools   Kind = "tools"
	KindProfile Kind = "profile"
)

// ErrUpstream wraps failures of a real model backend.
var ErrUpstream = errors.New("upstream model failed")

type Request struct {
	Kind   Kind
	Prompt string
}

// Responder produces the reply to a prompt. Implementations are injected into
// the server at construction time.
type Responder interface {
	Respond(ctx context.Context, req Request) (types.Descriptor, error)
}

// Mock answers from a pattern map and never fails. Chat and tool prompts are
// matched as given; profile requests are matched with the profile
// instructions a model backend would receive.
type Mock struct {
	patterns types.PatternMap
	fallback types.Descriptor
}

func NewMock(patterns types.PatternMap, fallback types.Descriptor) *Mock {
	return &Mock{patterns: patterns, fallback: fallback}
}

func (m *Mock) Respond(_ context.Context, req Request) (types.Descriptor, error) {
	prompt := req.Prompt
	if req.Kind == KindProfile {
		prompt = BuildProfilePrompt(req.Prompt)
	}
	return matcher.Match(prompt, m.patterns, m.fallback), nil
}
