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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"knative.dev/pkg/logging"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
	"github.com/openshift-pipelines/llm-mockserver/pkg/matcher"
	"github.com/openshift-pipelines/llm-mockserver/pkg/responder"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

type Config struct {
	Addr string
	// Responder selects "mock" (pattern replies) or "openai".
	Responder    string
	Framing      string
	PatternsFile string
	// Pacing of streamed replies
	InterChunkDelay time.Duration
	ToolCallDelay   time.Duration
	// LLM config
	Provider    string
	OpenAIModel string
	OpenAIBase  string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	Debug       bool
}

var (
	rootCmd = &cobra.Command{Use: "llmdemo", Short: "Streaming chat demo backed by a simulated LLM"}
	cfg     = &Config{}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&cfg.Responder, "responder", "mock", "Reply source: mock or openai")
	rootCmd.PersistentFlags().StringVar(&cfg.Framing, "framing", framer.SDKName, "Stream framing: sdk or openai")
	rootCmd.PersistentFlags().StringVar(&cfg.PatternsFile, "patterns", "", "YAML file with canned replies (defaults to the built-in demo set)")
	rootCmd.PersistentFlags().DurationVar(&cfg.InterChunkDelay, "inter-chunk-delay", stream.DefaultInterChunkDelay, "Pause after each text delta")
	rootCmd.PersistentFlags().DurationVar(&cfg.ToolCallDelay, "tool-call-delay", stream.DefaultToolCallDelay, "Pause after a tool call")
	rootCmd.PersistentFlags().StringVar(&cfg.Provider, "provider", "openai", "LLM provider")
	rootCmd.PersistentFlags().StringVar(&cfg.OpenAIModel, "openai-model", framer.DefaultModel, "OpenAI model name")
	rootCmd.PersistentFlags().StringVar(&cfg.OpenAIBase, "openai-base-url", "", "Optional OpenAI-compatible base URL")
	rootCmd.PersistentFlags().Float32Var(&cfg.Temperature, "openai-temperature", 0.2, "OpenAI sampling temperature")
	rootCmd.PersistentFlags().IntVar(&cfg.MaxTokens, "openai-max-tokens", 400, "OpenAI max output tokens")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "openai-timeout", 30*time.Second, "OpenAI request timeout")
	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Enable verbose logging")
}

// applyEnv overrides defaults/flags from environment variables when provided (populated via ConfigMap).
func (c *Config) applyEnv() {
	if v := os.Getenv("RESPONDER"); v != "" {
		c.Responder = v
	}
	if v := os.Getenv("FRAMING"); v != "" {
		c.Framing = v
	}
	if v := os.Getenv("PATTERNS_FILE"); v != "" {
		c.PatternsFile = v
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAIModel = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAIBase = v
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.Temperature = float32(f)
		}
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("OPENAI_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

func (c *Config) logger() *zap.SugaredLogger {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	logger, _ := logging.NewLogger("", level)
	return logger.Named("llmdemo")
}

func (c *Config) delay() stream.DelayPolicy {
	return stream.DelayPolicy{InterChunk: c.InterChunkDelay, ToolCall: c.ToolCallDelay}
}

func (c *Config) patterns() (types.PatternMap, types.Descriptor, error) {
	if c.PatternsFile == "" {
		return matcher.DemoPatterns(), matcher.DefaultFallback(), nil
	}
	return matcher.LoadFile(c.PatternsFile)
}

func (c *Config) responder(log *zap.SugaredLogger) (responder.Responder, error) {
	switch c.Responder {
	case "mock":
		patterns, fallback, err := c.patterns()
		if err != nil {
			return nil, err
		}
		return responder.NewMock(patterns, fallback), nil
	case "openai":
		return responder.NewOpenAI(responder.OpenAIConfig{
			Provider:       c.Provider,
			Model:          c.OpenAIModel,
			BaseURL:        c.OpenAIBase,
			Temperature:    c.Temperature,
			MaxTokens:      c.MaxTokens,
			RequestTimeout: c.Timeout,
			Debug:          c.Debug,
			Logger:         log,
		})
	default:
		return nil, fmt.Errorf("unknown responder %q, want mock or openai", c.Responder)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() { Execute() }
