package types

import "maps"

// DescriptorKind identifies which variant of Descriptor is populated.
type DescriptorKind string

const (
	KindText       DescriptorKind = "text"
	KindToolCall   DescriptorKind = "tool_call"
	KindStructured DescriptorKind = "structured"
)

// Descriptor describes what a simulated reply contains, independent of how
// it is transmitted. Build one with NewText, NewToolCall or NewStructured;
// the zero value is not a valid descriptor.
type Descriptor struct {
	kind DescriptorKind

	content string

	toolName      string
	toolArgs      map[string]any
	toolResult    any
	finalResponse string

	fields map[string]any
}

// NewText returns a plain-text reply that is streamed word by word.
func NewText(content string) Descriptor {
	return Descriptor{kind: KindText, content: content}
}

// NewToolCall returns a reply made of one tool invocation followed by a text answer.
func NewToolCall(toolName string, toolArgs map[string]any, finalResponse string) Descriptor {
	return Descriptor{
		kind:          KindToolCall,
		toolName:      toolName,
		toolArgs:      maps.Clone(toolArgs),
		finalResponse: finalResponse,
	}
}

// WithToolResult returns a copy of a tool-call descriptor that also reports the
// result of the invocation. It is a no-op for other kinds.
func (d Descriptor) WithToolResult(result any) Descriptor {
	if d.kind != KindToolCall {
		return d
	}
	d.toolArgs = maps.Clone(d.toolArgs)
	d.toolResult = result
	return d
}

// NewStructured returns a fully formed object delivered as a single unit.
func NewStructured(fields map[string]any) Descriptor {
	return Descriptor{kind: KindStructured, fields: maps.Clone(fields)}
}

func (d Descriptor) Kind() DescriptorKind { return d.kind }

// Content is the text of a Text descriptor.
func (d Descriptor) Content() string { return d.content }

func (d Descriptor) ToolName() string { return d.toolName }

// ToolArgs returns a copy of the tool arguments.
func (d Descriptor) ToolArgs() map[string]any { return maps.Clone(d.toolArgs) }

func (d Descriptor) ToolResult() any { return d.toolResult }

func (d Descriptor) FinalResponse() string { return d.finalResponse }

// Fields returns a copy of the structured object.
func (d Descriptor) Fields() map[string]any { return maps.Clone(d.fields) }

// Text returns the text that is streamed for this descriptor: the content of a
// Text reply or the final response of a tool call.
func (d Descriptor) Text() string {
	switch d.kind {
	case KindText:
		return d.content
	case KindToolCall:
		return d.finalResponse
	default:
		return ""
	}
}

// Pattern pairs a keyword with the reply returned when a prompt contains it.
type Pattern struct {
	Pattern    string
	Descriptor Descriptor
}

// PatternMap is an ordered list of patterns. Earlier entries take priority.
type PatternMap []Pattern

// Add appends a pattern and returns the extended map.
func (m PatternMap) Add(pattern string, d Descriptor) PatternMap {
	return append(m, Pattern{Pattern: pattern, Descriptor: d})
}
