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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

// OpenAIConfig holds configuration for the OpenAI-backed responder.
type OpenAIConfig struct {
	APIKey         string
	Provider       string
	Model          string
	Temperature    float32
	MaxTokens      int
	BaseURL        string
	RequestTimeout time.Duration
	Debug          bool
	Tools          Tools
	Logger         *zap.SugaredLogger
}

// OpenAI answers prompts with a chat completions backend.
type OpenAI struct {
	client    openai.Client
	model     string
	temp      float32
	maxTokens int
	tools     Tools
	debug     bool
	log       *zap.SugaredLogger
}

// NewOpenAI constructs a responder that talks to OpenAI's chat completions or
// any compatible endpoint, such as the mock upstream.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	// Secrets mounted via env may include trailing newlines; trim to avoid invalid Authorization header
	apiKey = strings.TrimSpace(apiKey)
	if cfg.Provider != "ollama" && cfg.Provider != "mock" && apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %q", cfg.Provider)
	}

	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		hc := &http.Client{Timeout: cfg.RequestTimeout}
		opts = append(opts, option.WithHTTPClient(hc))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	tools := cfg.Tools
	if tools == nil {
		tools = DefaultTools()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OpenAI{
		client:    openai.NewClient(opts...),
		model:     model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		tools:     tools,
		debug:     cfg.Debug,
		log:       log,
	}, nil
}

func (o *OpenAI) Respond(ctx context.Context, req Request) (types.Descriptor, error) {
	if o.debug {
		o.log.Debugw("llm request", "model", o.model, "kind", req.Kind, "prompt_len", len(req.Prompt))
	}
	var (
		d   types.Descriptor
		err error
	)
	switch req.Kind {
	case KindProfile:
		d, err = o.profile(ctx, req)
	case KindTools:
		d, err = o.withTools(ctx, req)
	default:
		d, err = o.chat(ctx, req)
	}
	if err != nil {
		if o.debug {
			o.log.Debugw("llm error", "kind", req.Kind, "error", err)
		}
		return types.Descriptor{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if o.debug {
		o.log.Debugw("llm response", "kind", d.Kind(), "response_len", len(d.Text()))
	}
	return d, nil
}

func (o *OpenAI) params(req Request, messages ...openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	all := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt(req.Kind)),
		openai.UserMessage(buildPrompt(req)),
	}
	params := openai.ChatCompletionNewParams{
		Messages: append(all, messages...),
		Model:    openai.ChatModel(o.model),
	}
	if o.temp > 0 {
		params.Temperature = openai.Float(float64(o.temp))
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxTokens))
	}
	return params
}

// streamed runs a streaming completion and returns the accumulated message.
func (o *OpenAI) streamed(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletionMessage, error) {
	s := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = s.Close() }()

	acc := openai.ChatCompletionAccumulator{}
	for s.Next() {
		acc.AddChunk(s.Current())
	}
	if err := s.Err(); err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	if len(acc.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("empty completion choices")
	}
	return acc.Choices[0].Message, nil
}

func (o *OpenAI) chat(ctx context.Context, req Request) (types.Descriptor, error) {
	msg, err := o.streamed(ctx, o.params(req))
	if err != nil {
		return types.Descriptor{}, err
	}
	return types.NewText(msg.Content), nil
}

func (o *OpenAI) withTools(ctx context.Context, req Request) (types.Descriptor, error) {
	params := o.params(req)
	for _, name := range o.tools.Names() {
		t := o.tools[name]
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  shared.FunctionParameters(t.Parameters),
		}))
	}

	msg, err := o.streamed(ctx, params)
	if err != nil {
		return types.Descriptor{}, err
	}
	if len(msg.ToolCalls) == 0 {
		return types.NewText(msg.Content), nil
	}

	call := msg.ToolCalls[0]
	args := map[string]any{}
	if a := strings.TrimSpace(call.Function.Arguments); a != "" {
		if err := json.Unmarshal([]byte(a), &args); err != nil {
			return types.Descriptor{}, fmt.Errorf("decode arguments of %s: %w", call.Function.Name, err)
		}
	}
	// Some backends (the mock upstream among them) stream the final answer in
	// the same turn as the tool call.
	if strings.TrimSpace(msg.Content) != "" {
		return types.NewToolCall(call.Function.Name, args, msg.Content), nil
	}

	result, err := o.tools.Call(ctx, call.Function.Name, args)
	if err != nil {
		return types.Descriptor{}, err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return types.Descriptor{}, fmt.Errorf("encode result of %s: %w", call.Function.Name, err)
	}
	follow, err := o.streamed(ctx, o.params(req, msg.ToParam(), openai.ToolMessage(string(encoded), call.ID)))
	if err != nil {
		return types.Descriptor{}, err
	}
	return types.NewToolCall(call.Function.Name, args, follow.Content).WithToolResult(result), nil
}

func (o *OpenAI) profile(ctx context.Context, req Request) (types.Descriptor, error) {
	params := o.params(req)
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return types.Descriptor{}, err
	}
	if len(resp.Choices) == 0 {
		return types.Descriptor{}, fmt.Errorf("empty completion choices")
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &fields); err != nil {
		return types.Descriptor{}, fmt.Errorf("decode profile: %w", err)
	}
	return types.NewStructured(fields), nil
}
