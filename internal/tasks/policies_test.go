package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

const policyJSON = `{ "id": "policy-1", "matching": { "topicFilter": "a/#" } }`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "definition")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDataPolicyCreate_Inline(t *testing.T) {
	api := &fakeAPI{}
	out := &recordingReporter{}

	res := NewDataPolicies(api, out).Create(context.Background(), Inline(policyJSON))

	require.True(t, res.OK())
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, `{ "id": "policy-1", "matching": { "topicFilter": "a/#" } }`, string(api.policy), "document sent byte for byte")
	require.Len(t, out.reports, 1)
	assert.Equal(t, "json", out.reports[0].kind)
}

func TestDataPolicyCreate_File(t *testing.T) {
	api := &fakeAPI{}
	out := &recordingReporter{}

	res := NewDataPolicies(api, out).Create(context.Background(), FromFile(writeFile(t, policyJSON+"\n")))

	require.True(t, res.OK())
	assert.JSONEq(t, policyJSON, string(api.policy))
}

func TestPolicyCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		src  func(t *testing.T) Source
		want string
	}{
		{
			name: "both sources",
			src: func(t *testing.T) Source {
				return Source{Definition: "abc", HasDefinition: true, File: writeFile(t, policyJSON)}
			},
			want: "Only one of definition or file must be set.",
		},
		{
			name: "no source",
			src:  func(*testing.T) Source { return Source{} },
			want: "One of definition or file must be set.",
		},
		{
			name: "empty inline",
			src:  func(*testing.T) Source { return Inline("") },
			want: "The policy definition must not be empty.",
		},
		{
			name: "blank inline",
			src:  func(*testing.T) Source { return Inline("  \n") },
			want: "The policy definition must not be empty.",
		},
		{
			name: "empty file",
			src:  func(t *testing.T) Source { return FromFile(writeFile(t, "")) },
			want: "The policy definition must not be empty.",
		},
		{
			name: "not json",
			src:  func(*testing.T) Source { return Inline("abc") },
			want: "The policy definition must be a valid JSON object.",
		},
		{
			name: "json array",
			src:  func(*testing.T) Source { return Inline("[1]") },
			want: "The policy definition must be a valid JSON object.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, create := range []func(*fakeAPI, *recordingReporter, Source) Result{
				func(api *fakeAPI, out *recordingReporter, src Source) Result {
					return NewDataPolicies(api, out).Create(context.Background(), src)
				},
				func(api *fakeAPI, out *recordingReporter, src Source) Result {
					return NewBehaviorPolicies(api, out).Create(context.Background(), src)
				},
			} {
				api := &fakeAPI{}
				out := &recordingReporter{}

				res := create(api, out, tt.src(t))

				assert.Equal(t, ValidationError, res.Kind)
				assert.Equal(t, tt.want, res.Reason)
				assert.Equal(t, 1, res.ExitCode())
				assert.Equal(t, 0, api.calls, "no remote call on validation failure")
				require.Len(t, out.reports, 1)
				assert.Equal(t, report{kind: "error", text: tt.want}, out.reports[0])
			}
		})
	}
}

func TestPolicyCreate_MissingFile(t *testing.T) {
	api := &fakeAPI{}
	out := &recordingReporter{}

	res := NewDataPolicies(api, out).Create(context.Background(), FromFile(filepath.Join(t.TempDir(), "absent.json")))

	assert.Equal(t, ValidationError, res.Kind)
	assert.Contains(t, res.Reason, "Could not read definition file")
	assert.Equal(t, 0, api.calls)
}

func TestPolicyCreate_RemoteError(t *testing.T) {
	apiErr := &datahub.APIError{Operation: "create data policy", StatusCode: 409, Body: []byte(`{"title":"exists"}`)}
	api := &fakeAPI{err: apiErr}
	out := &recordingReporter{}

	res := NewBehaviorPolicies(api, out).Create(context.Background(), Inline(policyJSON))

	assert.Equal(t, RemoteError, res.Kind)
	assert.Equal(t, 409, res.StatusCode)
	assert.Equal(t, []byte(`{"title":"exists"}`), res.Body)
	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, 1, api.calls)
	require.Len(t, out.reports, 1)
	assert.Equal(t, "api", out.reports[0].kind)
	assert.Equal(t, "Create behavior policy", out.reports[0].operation)
	assert.ErrorIs(t, out.reports[0].err, apiErr)
}

func TestPolicyGet(t *testing.T) {
	api := &fakeAPI{response: json.RawMessage(`{"id":"p1"}`)}
	out := &recordingReporter{}

	res := NewDataPolicies(api, out).Get(context.Background(), "p1")

	require.True(t, res.OK())
	assert.Equal(t, "p1", api.id)
	assert.Equal(t, json.RawMessage(`{"id":"p1"}`), res.Value)
	require.Len(t, out.reports, 1)
	assert.Equal(t, json.RawMessage(`{"id":"p1"}`), out.reports[0].value)
}

func TestPolicyGetDelete_EmptyID(t *testing.T) {
	api := &fakeAPI{}
	out := &recordingReporter{}
	policies := NewDataPolicies(api, out)
	behavior := NewBehaviorPolicies(api, out)

	for _, res := range []Result{
		policies.Get(context.Background(), ""),
		policies.Delete(context.Background(), ""),
	} {
		assert.Equal(t, ValidationError, res.Kind)
		assert.Equal(t, "The policy id must not be empty.", res.Reason)
	}
	res := behavior.Delete(context.Background(), "")
	assert.Equal(t, "The behavior policy id must not be empty.", res.Reason)

	assert.Equal(t, 0, api.calls)
	assert.Len(t, out.reports, 3)
}

func TestPolicyDelete(t *testing.T) {
	api := &fakeAPI{}
	out := &recordingReporter{}

	res := NewBehaviorPolicies(api, out).Delete(context.Background(), "b1")

	require.True(t, res.OK())
	assert.Equal(t, "b1", api.id)
	assert.Equal(t, []report{{kind: "status", text: "Deleted behavior policy 'b1'."}}, out.reports)
}

func TestPolicyDelete_RemoteError(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	out := &recordingReporter{}

	res := NewDataPolicies(api, out).Delete(context.Background(), "p1")

	assert.Equal(t, RemoteError, res.Kind)
	assert.Zero(t, res.StatusCode)
	require.Len(t, out.reports, 1)
	assert.Equal(t, "Delete policy", out.reports[0].operation)
}

func TestPolicyList_EmptyFiltersEqualNoFilters(t *testing.T) {
	apiA, apiB := &fakeAPI{}, &fakeAPI{}

	NewDataPolicies(apiA, &recordingReporter{}).List(context.Background(), datahub.DataPolicyFilter{})
	NewDataPolicies(apiB, &recordingReporter{}).List(context.Background(), datahub.DataPolicyFilter{
		PolicyIDs: []string{},
		SchemaIDs: []string{},
	})

	require.NotNil(t, apiA.dataFilter)
	require.NotNil(t, apiB.dataFilter)
	assert.Equal(t, *apiA.dataFilter, *apiB.dataFilter)
	assert.Nil(t, apiB.dataFilter.PolicyIDs)
}

func TestPolicyList_FiltersPassedVerbatim(t *testing.T) {
	api := &fakeAPI{listResponses: []json.RawMessage{json.RawMessage(`{"id":"p1"}`)}}
	out := &recordingReporter{}

	filter := datahub.DataPolicyFilter{PolicyIDs: []string{"p1", " p2"}, SchemaIDs: []string{"s"}, Topic: "a/#"}
	res := NewDataPolicies(api, out).List(context.Background(), filter)

	require.True(t, res.OK())
	assert.Equal(t, filter, *api.dataFilter)
	assert.Equal(t, 1, api.calls)
	require.Len(t, out.reports, 1)
	assert.Equal(t, "json", out.reports[0].kind)

	behaviorAPI := &fakeAPI{}
	NewBehaviorPolicies(behaviorAPI, out).List(context.Background(), datahub.BehaviorPolicyFilter{ClientIDs: []string{"c1"}})
	assert.Equal(t, datahub.BehaviorPolicyFilter{ClientIDs: []string{"c1"}}, *behaviorAPI.behaviorFilt)
}

func TestPolicyList_RemoteError(t *testing.T) {
	api := &fakeAPI{err: &datahub.APIError{StatusCode: 503}}
	out := &recordingReporter{}

	res := NewBehaviorPolicies(api, out).List(context.Background(), datahub.BehaviorPolicyFilter{})

	assert.False(t, res.OK())
	assert.Equal(t, 503, res.StatusCode)
	require.Len(t, out.reports, 1)
	assert.Equal(t, "List behavior policies", out.reports[0].operation)
}
