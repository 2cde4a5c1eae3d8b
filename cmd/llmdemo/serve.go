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
	"sync"

	"github.com/spf13/cobra"
	"knative.dev/pkg/logging"
	"knative.dev/pkg/signals"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat demo HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.applyEnv()
		logger := cfg.logger()
		defer func() { _ = logger.Sync() }()

		if _, err := framer.New(cfg.Framing); err != nil {
			return err
		}
		r, err := cfg.responder(logger)
		if err != nil {
			return err
		}
		logger.Infow("Starting chat demo", "responder", cfg.Responder, "framing", cfg.Framing, "patterns", cfg.PatternsFile)

		ctx := logging.WithLogger(signals.NewContext(), logger)
		srv := NewHTTPServer(cfg.Addr, logger, r, cfg.Framing, cfg.delay())

		var wg sync.WaitGroup
		srv.startListener(ctx, &wg)
		wg.Wait()
		return nil
	},
}
