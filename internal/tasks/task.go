package tasks

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Reporter renders task outcomes. *output.Formatter implements it.
type Reporter interface {
	PrintJSON(v any) error
	PrintStatus(format string, args ...any)
	PrintError(format string, args ...any)
	PrintAPIError(operation string, err error)
}

// Validation messages.
const (
	msgBothSources    = "Only one of definition or file must be set."
	msgNoSource       = "One of definition or file must be set."
	msgEmptyPolicy    = "The policy definition must not be empty."
	msgPolicyNotJSON  = "The policy definition must be a valid JSON object."
	msgEmptySchema    = "The schema definition must not be empty."
	msgNoMessageType  = "The message type must be set for protobuf schemas."
	msgEmptyScript    = "The script definition must not be empty."
	msgBadSchemaType  = "The schema type must be one of json or protobuf."
	msgEmptyFuncType  = "The script function type must not be empty."
	msgEmptyIDPattern = "The %s id must not be empty."
)

// Source is where a definition comes from. Exactly one of Definition
// (with HasDefinition) or File must be given.
type Source struct {
	Definition    string
	HasDefinition bool
	File          string
}

// Inline returns a Source for an inline definition.
func Inline(definition string) Source {
	return Source{Definition: definition, HasDefinition: true}
}

// FromFile returns a Source for a definition file.
func FromFile(path string) Source {
	return Source{File: path}
}

// resolve returns the definition bytes or a validation message.
func (s Source) resolve() ([]byte, string) {
	switch {
	case s.HasDefinition && s.File != "":
		return nil, msgBothSources
	case !s.HasDefinition && s.File == "":
		return nil, msgNoSource
	case s.HasDefinition:
		return []byte(s.Definition), ""
	}

	data, err := os.ReadFile(s.File)
	if err != nil {
		return nil, fmt.Sprintf("Could not read definition file '%s': %v", s.File, err)
	}
	return data, ""
}

// task holds what every resource task shares.
type task struct {
	out      Reporter
	resource string
}

func (t task) reportInvalid(reason string) Result {
	t.out.PrintError("%s", reason)
	return invalid(reason)
}

func (t task) reportFailure(operation string, err error) Result {
	t.out.PrintAPIError(operation, err)
	return failed(err)
}

// reportValue prints value as the single outcome. A failed print is the
// outcome instead.
func (t task) reportValue(value any) Result {
	if err := t.out.PrintJSON(value); err != nil {
		t.out.PrintError("Could not print %s: %v", t.resource, err)
		return unprinted(value, err)
	}
	return succeeded(value)
}

func (t task) checkID(id string) (string, bool) {
	if id == "" {
		return fmt.Sprintf(msgEmptyIDPattern, t.resource), false
	}
	return "", true
}

// get runs a fetch-by-id task.
func (t task) get(ctx context.Context, operation, id string, call func(context.Context, string) (json.RawMessage, error)) Result {
	if reason, ok := t.checkID(id); !ok {
		return t.reportInvalid(reason)
	}
	value, err := call(ctx, id)
	if err != nil {
		return t.reportFailure(operation, err)
	}
	return t.reportValue(value)
}

// delete runs a delete-by-id task.
func (t task) delete(ctx context.Context, operation, id string, call func(context.Context, string) error) Result {
	if reason, ok := t.checkID(id); !ok {
		return t.reportInvalid(reason)
	}
	if err := call(ctx, id); err != nil {
		return t.reportFailure(operation, err)
	}
	t.out.PrintStatus("Deleted %s '%s'.", t.resource, id)
	return succeeded(id)
}

// list runs a listing task.
func (t task) list(ctx context.Context, operation string, call func(context.Context) ([]json.RawMessage, error)) Result {
	items, err := call(ctx)
	if err != nil {
		return t.reportFailure(operation, err)
	}
	return t.reportValue(items)
}

// policyDefinition resolves and checks a policy JSON document.
func policyDefinition(src Source) (json.RawMessage, string) {
	data, reason := src.resolve()
	if reason != "" {
		return nil, reason
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, msgEmptyPolicy
	}
	if data[0] != '{' || !json.Valid(data) {
		return nil, msgPolicyNotJSON
	}
	return json.RawMessage(data), ""
}

// normalize returns nil for an empty filter so both forms send the same request.
func normalize(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	return values
}

func encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
