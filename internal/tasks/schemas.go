package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// SchemaAPI is the subset of *datahub.Client used for schemas.
type SchemaAPI interface {
	CreateSchema(ctx context.Context, schema datahub.Schema) (json.RawMessage, error)
	GetSchema(ctx context.Context, id string) (json.RawMessage, error)
	ListSchemas(ctx context.Context, filter datahub.SchemaFilter) ([]json.RawMessage, error)
	DeleteSchema(ctx context.Context, id string) error
}

// SchemaRequest is the user input for a new schema.
type SchemaRequest struct {
	ID     string
	Type   string // json or protobuf in any case, sent as given
	Source Source

	// Protobuf only.
	MessageType        string
	AllowUnknownFields bool
}

// Schemas runs schema tasks.
type Schemas struct {
	api SchemaAPI
	task
}

// NewSchemas creates schema tasks reporting to out.
func NewSchemas(api SchemaAPI, out Reporter) *Schemas {
	return &Schemas{api: api, task: task{out: out, resource: "schema"}}
}

// Create validates req and creates the schema.
//
// The definition is base64 encoded for every schema type. Protobuf schemas
// carry the messageType and allowUnknownFields arguments; JSON schemas
// carry none.
//
// Parameters:
//   - ctx: Context for the remote call
//   - req: Schema id, type, definition source and protobuf options
//
// Returns:
//   - Result: Success with the created schema, ValidationError, or RemoteError
func (t *Schemas) Create(ctx context.Context, req SchemaRequest) Result {
	if reason, ok := t.checkID(req.ID); !ok {
		return t.reportInvalid(reason)
	}

	protobuf := strings.EqualFold(req.Type, datahub.SchemaTypeProtobuf)
	if !protobuf && !strings.EqualFold(req.Type, datahub.SchemaTypeJSON) {
		return t.reportInvalid(msgBadSchemaType)
	}

	definition, reason := req.Source.resolve()
	if reason != "" {
		return t.reportInvalid(reason)
	}
	if len(bytes.TrimSpace(definition)) == 0 {
		return t.reportInvalid(msgEmptySchema)
	}

	schema := datahub.Schema{
		ID:               req.ID,
		Type:             req.Type,
		SchemaDefinition: encode(definition),
	}
	if protobuf {
		if req.MessageType == "" {
			return t.reportInvalid(msgNoMessageType)
		}
		schema.Arguments = map[string]string{
			datahub.ArgMessageType:        req.MessageType,
			datahub.ArgAllowUnknownFields: strconv.FormatBool(req.AllowUnknownFields),
		}
	}

	created, err := t.api.CreateSchema(ctx, schema)
	if err != nil {
		return t.reportFailure("Create schema", err)
	}
	return t.reportValue(created)
}

// Get fetches one schema.
func (t *Schemas) Get(ctx context.Context, id string) Result {
	return t.get(ctx, "Get schema", id, t.api.GetSchema)
}

// List lists schemas. Empty filters mean no filter.
func (t *Schemas) List(ctx context.Context, filter datahub.SchemaFilter) Result {
	filter.SchemaIDs = normalize(filter.SchemaIDs)
	filter.Types = normalize(filter.Types)
	return t.list(ctx, "List schemas", func(ctx context.Context) ([]json.RawMessage, error) {
		return t.api.ListSchemas(ctx, filter)
	})
}

// Delete deletes one schema.
func (t *Schemas) Delete(ctx context.Context, id string) Result {
	return t.delete(ctx, "Delete schema", id, t.api.DeleteSchema)
}
