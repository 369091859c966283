package tasks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// ScriptAPI is the subset of *datahub.Client used for scripts.
type ScriptAPI interface {
	CreateScript(ctx context.Context, script datahub.Script) (json.RawMessage, error)
	GetScript(ctx context.Context, id string) (json.RawMessage, error)
	ListScripts(ctx context.Context, filter datahub.ScriptFilter) ([]json.RawMessage, error)
	DeleteScript(ctx context.Context, id string) error
}

// ScriptRequest is the user input for a new script.
type ScriptRequest struct {
	ID           string
	FunctionType string
	Description  string
	Source       Source
}

// Scripts runs script tasks.
type Scripts struct {
	api ScriptAPI
	task
}

// NewScripts creates script tasks reporting to out.
func NewScripts(api ScriptAPI, out Reporter) *Scripts {
	return &Scripts{api: api, task: task{out: out, resource: "script"}}
}

// Create validates req and creates the script. The source is base64 encoded.
func (t *Scripts) Create(ctx context.Context, req ScriptRequest) Result {
	if reason, ok := t.checkID(req.ID); !ok {
		return t.reportInvalid(reason)
	}
	functionType := strings.ToUpper(strings.TrimSpace(req.FunctionType))
	if functionType == "" {
		return t.reportInvalid(msgEmptyFuncType)
	}

	source, reason := req.Source.resolve()
	if reason != "" {
		return t.reportInvalid(reason)
	}
	if len(strings.TrimSpace(string(source))) == 0 {
		return t.reportInvalid(msgEmptyScript)
	}

	created, err := t.api.CreateScript(ctx, datahub.Script{
		ID:           req.ID,
		FunctionType: functionType,
		Description:  req.Description,
		Source:       encode(source),
	})
	if err != nil {
		return t.reportFailure("Create script", err)
	}
	return t.reportValue(created)
}

// Get fetches one script.
func (t *Scripts) Get(ctx context.Context, id string) Result {
	return t.get(ctx, "Get script", id, t.api.GetScript)
}

// List lists scripts. Empty filters mean no filter.
func (t *Scripts) List(ctx context.Context, filter datahub.ScriptFilter) Result {
	filter.ScriptIDs = normalize(filter.ScriptIDs)
	filter.FunctionTypes = normalize(filter.FunctionTypes)
	return t.list(ctx, "List scripts", func(ctx context.Context) ([]json.RawMessage, error) {
		return t.api.ListScripts(ctx, filter)
	})
}

// Delete deletes one script.
func (t *Scripts) Delete(ctx context.Context, id string) Result {
	return t.delete(ctx, "Delete script", id, t.api.DeleteScript)
}
