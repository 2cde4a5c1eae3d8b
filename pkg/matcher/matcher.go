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
	"strings"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// FallbackMessage is streamed when no pattern matches a prompt.
const FallbackMessage = "I'm sorry, I don't have a response for that request."

// DefaultFallback returns the apology reply used when nothing matches.
func DefaultFallback() types.Descriptor {
	return types.NewText(FallbackMessage)
}

// Match returns the descriptor of the first pattern that is a case-insensitive
// substring of prompt, or fallback when none is.
func Match(prompt string, patterns types.PatternMap, fallback types.Descriptor) types.Descriptor {
	p := strings.ToLower(prompt)
	for _, entry := range patterns {
		if strings.Contains(p, strings.ToLower(entry.Pattern)) {
			return entry.Descriptor
		}
	}
	return fallback
}
