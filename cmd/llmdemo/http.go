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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"knative.dev/pkg/logging"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
	"github.com/openshift-pipelines/llm-mockserver/pkg/mockserver"
	"github.com/openshift-pipelines/llm-mockserver/pkg/responder"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

const (
	maxBodyBytes     = 1 << 20
	respondTimeout   = 45 * time.Second
	shutdownDeadline = 10 * time.Second
)

// HandlerFunc defines a generic HTTP handler function type
type HandlerFunc func(w http.ResponseWriter, r *http.Request)

// httpServer wraps http.Server and modular handlers
type httpServer struct {
	*http.Server
	httpServerEndpoint string
	log                *zap.SugaredLogger
	handlers           map[string]HandlerFunc
	responder          responder.Responder
	framing            string
	delay              stream.DelayPolicy
}

// NewHTTPServer creates a new httpServer with modular handlers
func NewHTTPServer(endpoint string, log *zap.SugaredLogger, r responder.Responder, framing string, delay stream.DelayPolicy) *httpServer {
	h := &httpServer{
		httpServerEndpoint: endpoint,
		log:                log,
		handlers:           make(map[string]HandlerFunc),
		responder:          r,
		framing:            framing,
		delay:              delay,
	}

	h.registerHandlers()
	h.initServer()
	return h
}

// registerHandlers registers all HTTP endpoints
func (h *httpServer) registerHandlers() {
	h.handlers["/health"] = h.handleHealthCheck
	h.handlers["/api/chat"] = h.handleChat(responder.KindChat)
	h.handlers["/api/chat-tools"] = h.handleChat(responder.KindTools)
	h.handlers["/api/generate-profile"] = h.handleGenerateProfile
}

// initServer wires handlers and tracing, and creates http.Server
func (h *httpServer) initServer() {
	mux := http.NewServeMux()
	for path, handler := range h.handlers {
		mux.HandleFunc(path, handler)
	}

	h.Server = &http.Server{
		Addr:         h.httpServerEndpoint,
		Handler:      otelhttp.NewHandler(mux, "llmdemo"),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// handleHealthCheck implements a simple health check
func (h *httpServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "0.0.1",
	}); err != nil {
		h.log.Warnw("Failed to encode health response", "error", err)
	}
}

type chatRequest struct {
	prompt string
	stream bool
}

// readChatRequest accepts {"prompt": ...} or {"messages": [...]}; replies
// stream unless the body says "stream": false.
func readChatRequest(r *http.Request) (chatRequest, error) {
	if r.Method != http.MethodPost {
		return chatRequest{}, errors.New("method not allowed")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return chatRequest{}, err
	}
	if !json.Valid(body) {
		return chatRequest{}, errors.New("request body must be JSON")
	}
	req := chatRequest{prompt: strings.TrimSpace(mockserver.ParseRequest(body).Prompt), stream: true}
	if s := gjson.GetBytes(body, "stream"); s.Exists() {
		req.stream = s.Bool()
	}
	if req.prompt == "" {
		return chatRequest{}, errors.New("prompt is required")
	}
	return req, nil
}

func (h *httpServer) respond(r *http.Request, kind responder.Kind, prompt string) (types.Descriptor, error) {
	ctx, cancel := context.WithTimeout(r.Context(), respondTimeout)
	defer cancel()
	d, err := h.responder.Respond(ctx, responder.Request{Kind: kind, Prompt: prompt})
	if err != nil {
		return types.Descriptor{}, err
	}
	return d, stream.Validate(d)
}

type toolCall struct {
	ToolName string         `json:"toolName"`
	Args     map[string]any `json:"args"`
	Result   any            `json:"result,omitempty"`
}

type chatResponse struct {
	Text      string         `json:"text"`
	ToolCalls []toolCall     `json:"toolCalls,omitempty"`
	Object    map[string]any `json:"object,omitempty"`
}

func (h *httpServer) handleChat(kind responder.Kind) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readChatRequest(r)
		if err != nil {
			status := http.StatusBadRequest
			if r.Method != http.MethodPost {
				status = http.StatusMethodNotAllowed
			}
			writeError(w, status, err.Error())
			return
		}
		h.log.Debugw("Chat request received", "kind", kind, "prompt_len", len(req.prompt), "stream", req.stream)

		d, err := h.respond(r, kind, req.prompt)
		if err != nil {
			h.log.Errorw("Responder failed", "kind", kind, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if !req.stream {
			out := chatResponse{Text: d.Text()}
			switch d.Kind() {
			case types.KindToolCall:
				out.ToolCalls = []toolCall{{ToolName: d.ToolName(), Args: d.ToolArgs(), Result: d.ToolResult()}}
			case types.KindStructured:
				out.Object = d.Fields()
			}
			writeJSON(w, h.log, out)
			return
		}

		f, err := framer.New(h.framing)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if err := stream.Emit(r.Context(), d, framer.NewWriter(w, f), h.delay); err != nil {
			h.log.Infow("Stream aborted", "kind", kind, "error", err)
		}
	}
}

// handleGenerateProfile handles the /api/generate-profile endpoint
func (h *httpServer) handleGenerateProfile(w http.ResponseWriter, r *http.Request) {
	req, err := readChatRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if r.Method != http.MethodPost {
			status = http.StatusMethodNotAllowed
		}
		writeError(w, status, err.Error())
		return
	}

	d, err := h.respond(r, responder.KindProfile, req.prompt)
	if err != nil {
		h.log.Errorw("Profile generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if d.Kind() != types.KindStructured {
		writeError(w, http.StatusInternalServerError, "reply is not a profile object")
		return
	}
	fields := d.Fields()
	if name, _ := fields["name"].(string); strings.TrimSpace(name) == "" {
		writeError(w, http.StatusInternalServerError, "profile has no name")
		return
	}
	writeJSON(w, h.log, map[string]any{"profile": fields})
}

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// startListener starts the HTTP server and shuts it down gracefully once ctx is done
func (h *httpServer) startListener(ctx context.Context, wg *sync.WaitGroup) {
	h.log.Infof("HTTP server listening on %s", h.httpServerEndpoint)

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		logger := logging.FromContext(ctx)

		sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		if err := h.Shutdown(sctx); err != nil {
			logger.Warnw("HTTP server Shutdown", "error", err)
		}
		close(idleConnsClosed)
		logger.Info("stopped http server")
	}()

	wg.Add(1)
	go func() {
		if err := h.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Fatalw("HTTP server failed", "error", err)
		}
		<-idleConnsClosed
		wg.Done()
		h.log.Info("http server shutdown")
	}()
}
