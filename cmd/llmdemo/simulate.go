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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openshift-pipelines/llm-mockserver/pkg/framer"
	"github.com/openshift-pipelines/llm-mockserver/pkg/render"
	"github.com/openshift-pipelines/llm-mockserver/pkg/responder"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
)

var (
	simulatePretty bool
	simulateKind   string
)

func init() {
	simulateCmd.Flags().BoolVar(&simulatePretty, "pretty", false, "Print a readable transcript instead of framed output")
	simulateCmd.Flags().StringVar(&simulateKind, "kind", string(responder.KindChat), "Reply kind: chat, tools or profile")
	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <prompt>",
	Short: "Stream the reply to a prompt to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.applyEnv()
		logger := cfg.logger()
		defer func() { _ = logger.Sync() }()

		r, err := cfg.responder(logger)
		if err != nil {
			return err
		}
		return simulate(cmd.Context(), cmd.OutOrStdout(), r, strings.Join(args, " "))
	},
}

func simulate(ctx context.Context, out io.Writer, r responder.Responder, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := r.Respond(ctx, responder.Request{Kind: responder.Kind(simulateKind), Prompt: prompt})
	if err != nil {
		return err
	}
	if simulatePretty {
		var c stream.Collector
		if err := stream.Emit(ctx, d, &c, stream.NoDelay()); err != nil {
			return err
		}
		_, err := fmt.Fprint(out, render.RenderTranscriptANSI(prompt, c.Chunks))
		return err
	}
	f, err := framer.New(cfg.Framing)
	if err != nil {
		return err
	}
	return stream.Emit(ctx, d, framer.NewWriter(out, f), cfg.delay())
}
