package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// report is one call on the recording reporter.
type report struct {
	kind      string // json, status, error, api
	text      string
	operation string
	value     any
	err       error
}

// recordingReporter captures every report.
type recordingReporter struct {
	reports []report
}

func (r *recordingReporter) PrintJSON(v any) error {
	r.reports = append(r.reports, report{kind: "json", value: v})
	return nil
}

func (r *recordingReporter) PrintStatus(format string, args ...any) {
	r.reports = append(r.reports, report{kind: "status", text: fmt.Sprintf(format, args...)})
}

func (r *recordingReporter) PrintError(format string, args ...any) {
	r.reports = append(r.reports, report{kind: "error", text: fmt.Sprintf(format, args...)})
}

func (r *recordingReporter) PrintAPIError(operation string, err error) {
	r.reports = append(r.reports, report{kind: "api", operation: operation, err: err})
}

// fakeAPI implements every resource API and counts calls.
type fakeAPI struct {
	calls int
	err   error

	policy        json.RawMessage
	schema        datahub.Schema
	script        datahub.Script
	id            string
	dataFilter    *datahub.DataPolicyFilter
	behaviorFilt  *datahub.BehaviorPolicyFilter
	schemaFilter  *datahub.SchemaFilter
	scriptFilter  *datahub.ScriptFilter
	response      json.RawMessage
	listResponses []json.RawMessage
}

func (f *fakeAPI) one(ctx context.Context) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.response == nil {
		return json.RawMessage(`{"id":"created"}`), nil
	}
	return f.response, nil
}

func (f *fakeAPI) many() ([]json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.listResponses == nil {
		return []json.RawMessage{}, nil
	}
	return f.listResponses, nil
}

func (f *fakeAPI) none(id string) error {
	f.calls++
	f.id = id
	return f.err
}

func (f *fakeAPI) CreateDataPolicy(ctx context.Context, p json.RawMessage) (json.RawMessage, error) {
	f.policy = p
	return f.one(ctx)
}

func (f *fakeAPI) GetDataPolicy(ctx context.Context, id string) (json.RawMessage, error) {
	f.id = id
	return f.one(ctx)
}

func (f *fakeAPI) ListDataPolicies(_ context.Context, filter datahub.DataPolicyFilter) ([]json.RawMessage, error) {
	f.dataFilter = &filter
	return f.many()
}

func (f *fakeAPI) DeleteDataPolicy(_ context.Context, id string) error { return f.none(id) }

func (f *fakeAPI) CreateBehaviorPolicy(ctx context.Context, p json.RawMessage) (json.RawMessage, error) {
	f.policy = p
	return f.one(ctx)
}

func (f *fakeAPI) GetBehaviorPolicy(ctx context.Context, id string) (json.RawMessage, error) {
	f.id = id
	return f.one(ctx)
}

func (f *fakeAPI) ListBehaviorPolicies(_ context.Context, filter datahub.BehaviorPolicyFilter) ([]json.RawMessage, error) {
	f.behaviorFilt = &filter
	return f.many()
}

func (f *fakeAPI) DeleteBehaviorPolicy(_ context.Context, id string) error { return f.none(id) }

func (f *fakeAPI) CreateSchema(ctx context.Context, s datahub.Schema) (json.RawMessage, error) {
	f.schema = s
	return f.one(ctx)
}

func (f *fakeAPI) GetSchema(ctx context.Context, id string) (json.RawMessage, error) {
	f.id = id
	return f.one(ctx)
}

func (f *fakeAPI) ListSchemas(_ context.Context, filter datahub.SchemaFilter) ([]json.RawMessage, error) {
	f.schemaFilter = &filter
	return f.many()
}

func (f *fakeAPI) DeleteSchema(_ context.Context, id string) error { return f.none(id) }

func (f *fakeAPI) CreateScript(ctx context.Context, s datahub.Script) (json.RawMessage, error) {
	f.script = s
	return f.one(ctx)
}

func (f *fakeAPI) GetScript(ctx context.Context, id string) (json.RawMessage, error) {
	f.id = id
	return f.one(ctx)
}

func (f *fakeAPI) ListScripts(_ context.Context, filter datahub.ScriptFilter) ([]json.RawMessage, error) {
	f.scriptFilter = &filter
	return f.many()
}

func (f *fakeAPI) DeleteScript(_ context.Context, id string) error { return f.none(id) }
