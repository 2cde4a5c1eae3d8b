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
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	chatSystemPrompt    = "You are a friendly assistant. Keep answers short and plain."
	toolsSystemPrompt   = "You are a helpful assistant. Use the available tools whenever they can answer the question, then summarize the result in one sentence."
	profileSystemPrompt = "You generate fictional user profiles. Reply with a single JSON object and nothing else."

	maxPromptLen = 4000
)

func systemPrompt(k Kind) string {
	switch k {
	case KindTools:
		return toolsSystemPrompt
	case KindProfile:
		return profileSystemPrompt
	default:
		return chatSystemPrompt
	}
}

// BuildProfilePrompt asks for a profile matching the user's description.
func BuildProfilePrompt(description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a realistic but fictional user profile.\n")
	fmt.Fprintf(&b, "Return a JSON object with the fields: name (string), age (integer), email (string), interests (array of strings).\n\n")
	if d := strings.TrimSpace(description); d != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", truncate(d, 600))
	}
	fmt.Fprintf(&b, "\nConstraints:\n- Ages between 18 and 90.\n- 3-5 interests.\n")
	return b.String()
}

func buildPrompt(req Request) string {
	if req.Kind == KindProfile {
		return BuildProfilePrompt(req.Prompt)
	}
	return truncate(req.Prompt, maxPromptLen)
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	suffix := ""
	if n > 3 {
		n -= 3
		suffix = "..."
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + suffix
}
