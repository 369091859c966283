package tasks

import (
	"context"
	"encoding/json"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// DataPolicyAPI is the subset of *datahub.Client used for data policies.
type DataPolicyAPI interface {
	CreateDataPolicy(ctx context.Context, policy json.RawMessage) (json.RawMessage, error)
	GetDataPolicy(ctx context.Context, id string) (json.RawMessage, error)
	ListDataPolicies(ctx context.Context, filter datahub.DataPolicyFilter) ([]json.RawMessage, error)
	DeleteDataPolicy(ctx context.Context, id string) error
}

// BehaviorPolicyAPI is the subset of *datahub.Client used for behavior policies.
type BehaviorPolicyAPI interface {
	CreateBehaviorPolicy(ctx context.Context, policy json.RawMessage) (json.RawMessage, error)
	GetBehaviorPolicy(ctx context.Context, id string) (json.RawMessage, error)
	ListBehaviorPolicies(ctx context.Context, filter datahub.BehaviorPolicyFilter) ([]json.RawMessage, error)
	DeleteBehaviorPolicy(ctx context.Context, id string) error
}

// DataPolicies runs data policy tasks.
type DataPolicies struct {
	api DataPolicyAPI
	task
}

// NewDataPolicies creates data policy tasks reporting to out.
func NewDataPolicies(api DataPolicyAPI, out Reporter) *DataPolicies {
	return &DataPolicies{api: api, task: task{out: out, resource: "policy"}}
}

// Create validates the policy document and creates it.
//
// The document is sent byte for byte so the server sees the user's field order.
//
// Parameters:
//   - ctx: Context for the remote call
//   - src: Inline definition or file path, exactly one
//
// Returns:
//   - Result: Success with the created policy, ValidationError, or RemoteError
func (t *DataPolicies) Create(ctx context.Context, src Source) Result {
	policy, reason := policyDefinition(src)
	if reason != "" {
		return t.reportInvalid(reason)
	}
	created, err := t.api.CreateDataPolicy(ctx, policy)
	if err != nil {
		return t.reportFailure("Create policy", err)
	}
	return t.reportValue(created)
}

// Get fetches one data policy.
func (t *DataPolicies) Get(ctx context.Context, id string) Result {
	return t.get(ctx, "Get policy", id, t.api.GetDataPolicy)
}

// List lists data policies. Empty filters mean no filter.
func (t *DataPolicies) List(ctx context.Context, filter datahub.DataPolicyFilter) Result {
	filter.PolicyIDs = normalize(filter.PolicyIDs)
	filter.SchemaIDs = normalize(filter.SchemaIDs)
	return t.list(ctx, "List policies", func(ctx context.Context) ([]json.RawMessage, error) {
		return t.api.ListDataPolicies(ctx, filter)
	})
}

// Delete deletes one data policy.
func (t *DataPolicies) Delete(ctx context.Context, id string) Result {
	return t.delete(ctx, "Delete policy", id, t.api.DeleteDataPolicy)
}

// BehaviorPolicies runs behavior policy tasks.
type BehaviorPolicies struct {
	api BehaviorPolicyAPI
	task
}

// NewBehaviorPolicies creates behavior policy tasks reporting to out.
func NewBehaviorPolicies(api BehaviorPolicyAPI, out Reporter) *BehaviorPolicies {
	return &BehaviorPolicies{api: api, task: task{out: out, resource: "behavior policy"}}
}

// Create validates the behavior policy document and creates it.
func (t *BehaviorPolicies) Create(ctx context.Context, src Source) Result {
	policy, reason := policyDefinition(src)
	if reason != "" {
		return t.reportInvalid(reason)
	}
	created, err := t.api.CreateBehaviorPolicy(ctx, policy)
	if err != nil {
		return t.reportFailure("Create behavior policy", err)
	}
	return t.reportValue(created)
}

// Get fetches one behavior policy.
func (t *BehaviorPolicies) Get(ctx context.Context, id string) Result {
	return t.get(ctx, "Get behavior policy", id, t.api.GetBehaviorPolicy)
}

// List lists behavior policies. Empty filters mean no filter.
func (t *BehaviorPolicies) List(ctx context.Context, filter datahub.BehaviorPolicyFilter) Result {
	filter.PolicyIDs = normalize(filter.PolicyIDs)
	filter.ClientIDs = normalize(filter.ClientIDs)
	return t.list(ctx, "List behavior policies", func(ctx context.Context) ([]json.RawMessage, error) {
		return t.api.ListBehaviorPolicies(ctx, filter)
	})
}

// Delete deletes one behavior policy.
func (t *BehaviorPolicies) Delete(ctx context.Context, id string) Result {
	return t.delete(ctx, "Delete behavior policy", id, t.api.DeleteBehaviorPolicy)
}
