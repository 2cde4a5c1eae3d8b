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

package stream

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/openshift-pipelines/llm-mockserver/pkg/types"
)

var (
	// ErrSinkClosed reports that emission stopped because the sink rejected a
	// write or the caller's context ended. Chunks already written stay written.
	ErrSinkClosed = errors.New("sink closed")

	// ErrMalformedDescriptor reports a descriptor that cannot be emitted.
	ErrMalformedDescriptor = errors.New("malformed descriptor")
)

// MalformedDescriptorError lists what is wrong with a descriptor.
type MalformedDescriptorError struct {
	Errs field.ErrorList
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedDescriptor, e.Errs.ToAggregate())
}

func (e *MalformedDescriptorError) Is(target error) bool { return target == ErrMalformedDescriptor }

// Validate checks that d can be emitted. An empty text is accepted and yields
// no text deltas; a tool call without a name or an unknown kind is rejected.
func Validate(d types.Descriptor) error {
	var errs field.ErrorList
	root := field.NewPath("descriptor")
	switch d.Kind() {
	case types.KindText, types.KindStructured:
	case types.KindToolCall:
		if d.ToolName() == "" {
			errs = append(errs, field.Required(root.Child("toolName"), "a tool call needs a tool name"))
		}
	default:
		errs = append(errs, field.NotSupported(root.Child("kind"), d.Kind(),
			[]string{string(types.KindText), string(types.KindToolCall), string(types.KindStructured)}))
	}
	if len(errs) == 0 {
		return nil
	}
	return &MalformedDescriptorError{Errs: errs}
}
