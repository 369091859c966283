package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

func newTestFormatter(verbose bool) (*Formatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Formatter{Out: &out, Err: &errOut, Verbose: verbose}, &out, &errOut
}

func TestPrintJSON_RawKeepsFieldOrder(t *testing.T) {
	f, out, errOut := newTestFormatter(false)

	raw := json.RawMessage(`{"z":1,"a":{"y":true,"b":[1,2]}}`)
	require.NoError(t, f.PrintJSON(raw))

	want := "{\n  \"z\": 1,\n  \"a\": {\n    \"y\": true,\n    \"b\": [\n      1,\n      2\n    ]\n  }\n}\n"
	assert.Equal(t, want, out.String())
	assert.Empty(t, errOut.String())
}

func TestPrintJSON_Values(t *testing.T) {
	f, out, _ := newTestFormatter(false)

	require.NoError(t, f.PrintJSON([]json.RawMessage{json.RawMessage(`{"id":"p1"}`)}))
	assert.Equal(t, "[\n  {\n    \"id\": \"p1\"\n  }\n]\n", out.String())

	out.Reset()
	require.NoError(t, f.PrintJSON(map[string]int{"count": 2}))
	assert.Equal(t, "{\n  \"count\": 2\n}\n", out.String())
}

func TestPrintJSON_InvalidRaw(t *testing.T) {
	f, out, _ := newTestFormatter(false)

	assert.Error(t, f.PrintJSON([]byte("{broken")))
	assert.Empty(t, out.String())
}

func TestPrintStatusAndError(t *testing.T) {
	f, out, errOut := newTestFormatter(false)

	f.PrintStatus("Deleted %s '%s'.", "schema", "s1")
	f.PrintError("The schema id must not be empty.")

	assert.Equal(t, "Deleted schema 's1'.\n", out.String())
	assert.Equal(t, "The schema id must not be empty.\n", errOut.String())
}

func TestPrintAPIError(t *testing.T) {
	body := []byte(`{"title":"Invalid policy","detail":"The policy is invalid","errors":[{"title":"Missing field","detail":"id is required"},{"title":"Bad topic"}]}`)
	apiErr := &datahub.APIError{Operation: "create data policy", StatusCode: 400, Status: "400 Bad Request", Body: body}

	tests := []struct {
		name    string
		verbose bool
		err     error
		want    string
	}{
		{
			name: "problem details",
			err:  apiErr,
			want: "Create data policy failed: HTTP 400\n" +
				"  Invalid policy: The policy is invalid\n" +
				"  - Missing field: id is required\n" +
				"  - Bad topic\n",
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("outer: %w", apiErr),
			want: "Create data policy failed: HTTP 400\n" +
				"  Invalid policy: The policy is invalid\n" +
				"  - Missing field: id is required\n" +
				"  - Bad topic\n",
		},
		{
			name:    "verbose appends body",
			verbose: true,
			err:     &datahub.APIError{StatusCode: 500, Body: []byte("upstream exploded\n")},
			want:    "Create data policy failed: HTTP 500\nupstream exploded\n",
		},
		{
			name: "not json",
			err:  &datahub.APIError{StatusCode: 502, Body: []byte("<html>")},
			want: "Create data policy failed: HTTP 502\n",
		},
		{
			name: "transport error",
			err:  errors.New("dial tcp: connection refused"),
			want: "Create data policy failed: dial tcp: connection refused\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, errOut := newTestFormatter(tt.verbose)
			f.PrintAPIError("Create data policy", tt.err)
			assert.Equal(t, tt.want, errOut.String())
			assert.Empty(t, out.String())
		})
	}
}

func TestPrintAPIError_SingleMessage(t *testing.T) {
	f, _, errOut := newTestFormatter(false)
	f.PrintAPIError("Delete script", &datahub.APIError{StatusCode: 404, Body: []byte(`{"title":"Not found"}`)})

	assert.Equal(t, 1, strings.Count(errOut.String(), "failed"))
}

func TestNilWritersFallBack(t *testing.T) {
	f := &Formatter{}
	assert.NotNil(t, f.stdout())
	assert.NotNil(t, f.stderr())
}
