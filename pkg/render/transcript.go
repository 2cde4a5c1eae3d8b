package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

type style struct {
	open, close string
}

var (
	markdown = style{open: "**", close: "**"}
	ansi     = style{open: "\x1b[1m", close: "\x1b[0m"}
)

// RenderTranscript builds a human-readable report of a simulated reply: the
// prompt, any tool invocation, the reassembled text and how the stream ended.
func RenderTranscript(prompt string, chunks []types.Chunk) string {
	return renderTranscript(markdown, prompt, chunks)
}

// RenderTranscriptANSI prints the same report with ANSI bold styling for terminals.
func RenderTranscriptANSI(prompt string, chunks []types.Chunk) string {
	return renderTranscript(ansi, prompt, chunks)
}

func renderTranscript(s style, prompt string, chunks []types.Chunk) string {
	var (
		b      strings.Builder
		text   strings.Builder
		deltas int
		finish string
		done   bool
	)
	label := func(name string) string { return s.open + name + ":" + s.close }

	fmt.Fprintf(&b, "%sSimulated LLM Reply%s\n", s.open, s.close)
	fmt.Fprintf(&b, "%s %s\n", label("Prompt"), valueOrDash(prompt))
	for _, c := range chunks {
		switch c.Kind {
		case types.ChunkToolCall:
			fmt.Fprintf(&b, "%s %s(%s) [%s]\n", label("Tool Call"), c.ToolName, c.Args, c.ToolCallID)
		case types.ChunkToolResult:
			fmt.Fprintf(&b, "%s %s\n", label("Tool Result"), compact(c.Result))
		case types.ChunkTextDelta:
			deltas++
			text.WriteString(c.Text)
		case types.ChunkObject:
			out, err := json.MarshalIndent(c.Fields, "", "  ")
			if err != nil {
				out = []byte(err.Error())
			}
			fmt.Fprintf(&b, "%s\n%s\n", label("Object"), out)
			// an object is delivered whole and has no sentinel
			done = true
		case types.ChunkFinish:
			finish = c.FinishReason
		case types.ChunkDone:
			done = true
		}
	}
	if deltas > 0 || finish != "" {
		fmt.Fprintf(&b, "%s %d\n", label("Text Deltas"), deltas)
		fmt.Fprintf(&b, "%s\n", label("Text"))
		if t := strings.TrimSpace(text.String()); t != "" {
			fmt.Fprintf(&b, "%s\n", t)
		} else {
			fmt.Fprintf(&b, "(empty)\n")
		}
		fmt.Fprintf(&b, "%s %s\n", label("Finish Reason"), valueOrDash(finish))
	}
	if done {
		fmt.Fprintf(&b, "%s ✅ Yes\n", label("Completed"))
	} else {
		fmt.Fprintf(&b, "%s ❌ No\n", label("Completed"))
	}
	return b.String()
}

func compact(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}

func valueOrDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
