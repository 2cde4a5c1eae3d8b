package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"knative.dev/pkg/logging"
	"knative.dev/pkg/signals"

	"github.com/openshift-pipelines/llm-mockserver/pkg/matcher"
	"github.com/openshift-pipelines/llm-mockserver/pkg/mockserver"
	"github.com/openshift-pipelines/llm-mockserver/pkg/stream"
	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

func main() {
	logger, _ := logging.NewLogger("", "info")
	logger = logger.Named("mock-openai")
	defer func() { _ = logger.Sync() }()

	patterns, fallback := matcher.DemoPatterns(), matcher.DefaultFallback()
	if path := os.Getenv("MOCK_PATTERNS"); path != "" {
		var err error
		if patterns, fallback, err = matcher.LoadFile(path); err != nil {
			logger.Fatalw("Failed to load patterns", "path", path, "error", err)
		}
	}
	// Legacy single canned reply
	if content := os.Getenv("MOCK_ANALYSIS"); content != "" {
		fallback = types.NewText(content)
	}

	s, err := mockserver.New(mockserver.Config{
		Patterns: patterns,
		Fallback: &fallback,
		Framing:  os.Getenv("MOCK_FRAMING"),
		Delay:    stream.NoDelay(),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalw("Invalid mock configuration", "error", err)
	}

	addr := os.Getenv("MOCK_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	ctx := signals.NewContext()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Infof("mock-openai listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalw("HTTP server failed", "error", err)
	}
}
