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

// Package mockserver serves canned LLM replies over an OpenAI-compatible
// chat completions endpoint.
package mockserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
	"github.com/openshift-pipelines/llm-mockserver/pkg/matcher"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const maxBodyBytes = 1 << 20

// Config holds the replies and pacing of a mock server.
type Config struct {
	Patterns types.PatternMap
	// Fallback is returned when no pattern matches; defaults to matcher.DefaultFallback.
	Fallback *types.Descriptor
	// Framing names the framer used for streamed replies; defaults to "openai".
	Framing string
	Delay   stream.DelayPolicy
	// Model is reported when the request does not name one.
	Model  string
	Logger *zap.SugaredLogger
}

// Server is a mock upstream. It is safe for concurrent use.
type Server struct {
	patterns types.PatternMap
	fallback types.Descriptor
	framing  string
	delay    stream.DelayPolicy
	model    string
	log      *zap.SugaredLogger

	mu      sync.Mutex
	prompts []string
}

// New validates cfg and returns a server.
func New(cfg Config) (*Server, error) {
	s := &Server{
		patterns: cfg.Patterns,
		fallback: matcher.DefaultFallback(),
		framing:  cfg.Framing,
		delay:    cfg.Delay,
		model:    cfg.Model,
		log:      cfg.Logger,
	}
	if cfg.Fallback != nil {
		s.fallback = *cfg.Fallback
	}
	if s.framing == "" {
		s.framing = framer.ProviderName
	}
	if _, err := framer.New(s.framing); err != nil {
		return nil, err
	}
	if s.model == "" {
		s.model = framer.DefaultModel
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	return s, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			s.handleHealth(w, r)
			return
		}
		s.handleCompletion(w, r)
	})
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleCompletion)
	return mux
}

// Prompts returns the prompts received so far, oldest first.
func (s *Server) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Reset forgets the recorded prompts.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = nil
}

func (s *Server) record(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "request body must be a JSON object")
		return
	}
	req := ParseRequest(body)
	if req.Model == "" {
		req.Model = s.model
	}
	s.record(req.Prompt)

	d := matcher.Match(req.Prompt, s.patterns, s.fallback)
	if err := stream.Validate(d); err != nil {
		s.log.Errorw("Matched reply cannot be emitted", "prompt", req.Prompt, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	s.log.Debugw("Matched prompt", "prompt", req.Prompt, "kind", d.Kind(), "stream", req.Stream)

	if !req.Stream {
		s.writeCompletion(w, req, d)
		return
	}

	f, err := framer.NewForModel(s.framing, req.Model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := stream.Emit(r.Context(), d, framer.NewWriter(w, f), s.delay); err != nil {
		s.log.Infow("Stream aborted", "prompt", req.Prompt, "error", err)
	}
}

type completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   completionUsage    `json:"usage"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// writeCompletion answers a non-streaming request. Only structured replies
// have a non-streamed form.
func (s *Server) writeCompletion(w http.ResponseWriter, req Request, d types.Descriptor) {
	if d.Kind() != types.KindStructured {
		writeError(w, http.StatusBadRequest, "invalid_request_error",
			"the matched reply is streamed only; retry with \"stream\": true")
		return
	}
	content, err := json.Marshal(d.Fields())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	prompt := len(strings.Fields(req.Prompt))
	out := completion{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []completionChoice{{
			Message:      completionMessage{Role: "assistant", Content: string(content)},
			FinishReason: types.FinishReasonStop,
		}},
		Usage: completionUsage{PromptTokens: prompt, CompletionTokens: len(d.Fields()), TotalTokens: prompt + len(d.Fields())},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Warnw("Failed to encode completion", "error", err)
	}
}

type errorPayload struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorPayload{Error: errorBody{Message: msg, Type: typ}})
}
