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
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"knative.dev/pkg/signals"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
	"github.com/openshift-pipelines/llm-mockserver/pkg/mockserver"
)

func init() {
	rootCmd.AddCommand(mockCmd)
}

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve canned replies on an OpenAI-compatible chat completions endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.applyEnv()
		// OpenAI clients expect provider framing unless asked otherwise
		if !cmd.Flags().Changed("framing") && os.Getenv("FRAMING") == "" {
			cfg.Framing = framer.ProviderName
		}
		logger := cfg.logger().Named("mock")
		defer func() { _ = logger.Sync() }()

		patterns, fallback, err := cfg.patterns()
		if err != nil {
			return err
		}
		s, err := mockserver.New(mockserver.Config{
			Patterns: patterns,
			Fallback: &fallback,
			Framing:  cfg.Framing,
			Delay:    cfg.delay(),
			Model:    cfg.OpenAIModel,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		srv := &http.Server{Addr: cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
		ctx := signals.NewContext()
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		logger.Infow("Mock upstream listening", "addr", cfg.Addr, "framing", cfg.Framing, "patterns", len(patterns))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}
