package datahub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Collection paths.
const (
	dataPoliciesPath     = apiPrefix + "/data-validation/policies"
	behaviorPoliciesPath = apiPrefix + "/behavior-validation/policies"
	schemasPath          = apiPrefix + "/schemas"
	scriptsPath          = apiPrefix + "/scripts"
)

// Schema types accepted by the API.
const (
	SchemaTypeJSON     = "JSON"
	SchemaTypeProtobuf = "PROTOBUF"
)

// Protobuf schema argument keys.
const (
	ArgMessageType        = "messageType"
	ArgAllowUnknownFields = "allowUnknownFields"
)

// Schema is the create representation of a schema.
// SchemaDefinition is base64 encoded.
type Schema struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	SchemaDefinition string            `json:"schemaDefinition"`
	Arguments        map[string]string `json:"arguments,omitempty"`
	Version          int               `json:"version,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty"`
}

// Script is the create representation of a script.
// Source is base64 encoded.
type Script struct {
	ID           string `json:"id"`
	FunctionType string `json:"functionType"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source"`
	Version      int    `json:"version,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// DataPolicyFilter narrows a data policy listing. Zero values mean no filter.
type DataPolicyFilter struct {
	PolicyIDs []string
	SchemaIDs []string
	Topic     string
}

// BehaviorPolicyFilter narrows a behavior policy listing.
type BehaviorPolicyFilter struct {
	PolicyIDs []string
	ClientIDs []string
}

// SchemaFilter narrows a schema listing.
type SchemaFilter struct {
	SchemaIDs []string
	Types     []string
}

// ScriptFilter narrows a script listing.
type ScriptFilter struct {
	ScriptIDs     []string
	FunctionTypes []string
}

// =============================================================================
// Data policies
// =============================================================================

// CreateDataPolicy creates a data policy from its JSON document.
//
// Parameters:
//   - ctx: Context for cancellation
//   - policy: The policy JSON, sent as-is
//
// Returns:
//   - json.RawMessage: The created policy as returned by the server
//   - error: *APIError on a non-2xx response, ErrRequestFailed on transport failure
func (c *Client) CreateDataPolicy(ctx context.Context, policy json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "create data policy", http.MethodPost, dataPoliciesPath, nil, policy, &out)
	return out, err
}

// GetDataPolicy fetches one data policy.
func (c *Client) GetDataPolicy(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "get data policy", http.MethodGet, resourcePath(dataPoliciesPath, id), nil, nil, &out)
	return out, err
}

// ListDataPolicies lists data policies matching filter, following every page.
func (c *Client) ListDataPolicies(ctx context.Context, filter DataPolicyFilter) ([]json.RawMessage, error) {
	q := url.Values{}
	setList(q, "policyIds", filter.PolicyIDs)
	setList(q, "schemaIds", filter.SchemaIDs)
	if filter.Topic != "" {
		q.Set("topic", filter.Topic)
	}
	return c.list(ctx, "list data policies", dataPoliciesPath, q)
}

// DeleteDataPolicy deletes one data policy.
func (c *Client) DeleteDataPolicy(ctx context.Context, id string) error {
	return c.do(ctx, "delete data policy", http.MethodDelete, resourcePath(dataPoliciesPath, id), nil, nil, nil)
}

// =============================================================================
// Behavior policies
// =============================================================================

// CreateBehaviorPolicy creates a behavior policy from its JSON document.
func (c *Client) CreateBehaviorPolicy(ctx context.Context, policy json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "create behavior policy", http.MethodPost, behaviorPoliciesPath, nil, policy, &out)
	return out, err
}

// GetBehaviorPolicy fetches one behavior policy.
func (c *Client) GetBehaviorPolicy(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "get behavior policy", http.MethodGet, resourcePath(behaviorPoliciesPath, id), nil, nil, &out)
	return out, err
}

// ListBehaviorPolicies lists behavior policies matching filter.
func (c *Client) ListBehaviorPolicies(ctx context.Context, filter BehaviorPolicyFilter) ([]json.RawMessage, error) {
	q := url.Values{}
	setList(q, "policyIds", filter.PolicyIDs)
	setList(q, "clientIds", filter.ClientIDs)
	return c.list(ctx, "list behavior policies", behaviorPoliciesPath, q)
}

// DeleteBehaviorPolicy deletes one behavior policy.
func (c *Client) DeleteBehaviorPolicy(ctx context.Context, id string) error {
	return c.do(ctx, "delete behavior policy", http.MethodDelete, resourcePath(behaviorPoliciesPath, id), nil, nil, nil)
}

// =============================================================================
// Schemas
// =============================================================================

// CreateSchema creates a schema.
//
// Parameters:
//   - ctx: Context for cancellation
//   - schema: The schema with an already base64-encoded definition
//
// Returns:
//   - json.RawMessage: The created schema as returned by the server
//   - error: *APIError on a non-2xx response, ErrRequestFailed on transport failure
func (c *Client) CreateSchema(ctx context.Context, schema Schema) (json.RawMessage, error) {
	body, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding schema: %w", ErrRequestFailed, err)
	}
	var out json.RawMessage
	err = c.do(ctx, "create schema", http.MethodPost, schemasPath, nil, body, &out)
	return out, err
}

// GetSchema fetches the latest version of one schema.
func (c *Client) GetSchema(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "get schema", http.MethodGet, resourcePath(schemasPath, id), nil, nil, &out)
	return out, err
}

// ListSchemas lists schemas matching filter.
func (c *Client) ListSchemas(ctx context.Context, filter SchemaFilter) ([]json.RawMessage, error) {
	q := url.Values{}
	setList(q, "schemaIds", filter.SchemaIDs)
	setList(q, "types", filter.Types)
	return c.list(ctx, "list schemas", schemasPath, q)
}

// DeleteSchema deletes every version of one schema.
func (c *Client) DeleteSchema(ctx context.Context, id string) error {
	return c.do(ctx, "delete schema", http.MethodDelete, resourcePath(schemasPath, id), nil, nil, nil)
}

// =============================================================================
// Scripts
// =============================================================================

// CreateScript creates a script. script.Source must already be base64 encoded.
func (c *Client) CreateScript(ctx context.Context, script Script) (json.RawMessage, error) {
	body, err := json.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding script: %w", ErrRequestFailed, err)
	}
	var out json.RawMessage
	err = c.do(ctx, "create script", http.MethodPost, scriptsPath, nil, body, &out)
	return out, err
}

// GetScript fetches the latest version of one script.
func (c *Client) GetScript(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, "get script", http.MethodGet, resourcePath(scriptsPath, id), nil, nil, &out)
	return out, err
}

// ListScripts lists scripts matching filter.
func (c *Client) ListScripts(ctx context.Context, filter ScriptFilter) ([]json.RawMessage, error) {
	q := url.Values{}
	setList(q, "scriptIds", filter.ScriptIDs)
	setList(q, "functionTypes", filter.FunctionTypes)
	return c.list(ctx, "list scripts", scriptsPath, q)
}

// DeleteScript deletes every version of one script.
func (c *Client) DeleteScript(ctx context.Context, id string) error {
	return c.do(ctx, "delete script", http.MethodDelete, resourcePath(scriptsPath, id), nil, nil, nil)
}
