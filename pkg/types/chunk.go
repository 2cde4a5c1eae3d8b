package types

// ChunkKind identifies one unit of emitted output.
type ChunkKind string

const (
	ChunkTextDelta  ChunkKind = "text_delta"
	ChunkToolCall   ChunkKind = "tool_call"
	ChunkToolResult ChunkKind = "tool_result"
	ChunkFinish     ChunkKind = "finish"
	// ChunkDone is the end-of-stream sentinel written after the finish marker.
	ChunkDone ChunkKind = "done"
	// ChunkObject carries a structured reply as one non-streamed unit.
	ChunkObject ChunkKind = "object"
)

// FinishReasonStop is the completion reason of a reply that ended normally.
const FinishReasonStop = "stop"

// Chunk is the framing-agnostic representation of emitted output. Only the
// fields relevant to Kind are set.
type Chunk struct {
	Kind ChunkKind `json:"kind"`

	Text string `json:"text,omitempty"`

	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	// Args holds the JSON-serialized tool arguments.
	Args   string `json:"args,omitempty"`
	Result any    `json:"result,omitempty"`

	FinishReason string `json:"finish_reason,omitempty"`

	Fields map[string]any `json:"fields,omitempty"`
}

func TextDelta(text string) Chunk { return Chunk{Kind: ChunkTextDelta, Text: text} }

func Finish(reason string) Chunk { return Chunk{Kind: ChunkFinish, FinishReason: reason} }

func Done() Chunk { return Chunk{Kind: ChunkDone} }
