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

package mockserver

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Request is the part of an inbound completion request the simulator reads.
type Request struct {
	Prompt string
	Stream bool
	Model  string
}

// ParseRequest extracts the prompt from a flat "prompt" field or, when that is
// missing, blank or not text, from the last user entry of "messages". Message
// content may be a string or a list of text parts.
func ParseRequest(body []byte) Request {
	root := gjson.ParseBytes(body)
	req := Request{
		Stream: root.Get("stream").Bool(),
		Model:  root.Get("model").String(),
	}
	if p := root.Get("prompt"); p.Type == gjson.String || p.IsArray() {
		if text := contentText(p); strings.TrimSpace(text) != "" {
			req.Prompt = text
			return req
		}
	}
	users := root.Get(`messages.#(role=="user")#`).Array()
	if len(users) > 0 {
		req.Prompt = contentText(users[len(users)-1].Get("content"))
	}
	return req
}

func contentText(v gjson.Result) string {
	if !v.IsArray() {
		return v.String()
	}
	var parts []string
	for _, part := range v.Array() {
		if part.Type == gjson.String {
			parts = append(parts, part.String())
			continue
		}
		if t := part.Get("type").String(); t != "" && t != "text" {
			continue
		}
		parts = append(parts, part.Get("text").String())
	}
	return strings.Join(parts, " ")
}
