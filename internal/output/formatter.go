package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// indent is the JSON indentation used for every structured result.
const indent = "  "

// Formatter writes results and errors.
//
// Thread Safety:
//   - A Formatter is not safe for concurrent use; commands report sequentially.
type Formatter struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

// New creates a Formatter on stdout and stderr.
func New(verbose bool) *Formatter {
	return &Formatter{Out: os.Stdout, Err: os.Stderr, Verbose: verbose}
}

// problem is the RFC 7807 body returned by the Data Hub API.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// PrintJSON writes v as indented JSON followed by a newline.
//
// json.RawMessage and []byte values are re-indented without decoding so the
// server's field order survives. Anything else is marshalled.
//
// Returns:
//   - error: If v cannot be encoded or written
func (f *Formatter) PrintJSON(v any) error {
	var raw []byte
	switch value := v.(type) {
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		data, err := json.MarshalIndent(v, "", indent)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintln(f.stdout(), string(data))
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", indent); err != nil {
		return fmt.Errorf("formatting result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := f.stdout().Write(buf.Bytes())
	return err
}

// PrintStatus writes one status line to the standard stream.
func (f *Formatter) PrintStatus(format string, args ...any) {
	fmt.Fprintf(f.stdout(), format+"\n", args...)
}

// PrintError writes one error line to the error stream.
func (f *Formatter) PrintError(format string, args ...any) {
	fmt.Fprintf(f.stderr(), format+"\n", args...)
}

// PrintAPIError renders a failed remote operation.
//
// An *datahub.APIError becomes "<operation> failed: HTTP <status>" plus the
// problem details of its body, one per indented line. Other errors render
// as "<operation> failed: <err>". In verbose mode the raw body follows.
//
// Parameters:
//   - operation: Human description, e.g. "Create data policy"
//   - err: The failure returned by the client
func (f *Formatter) PrintAPIError(operation string, err error) {
	var apiErr *datahub.APIError
	if !errors.As(err, &apiErr) {
		f.PrintError("%s failed: %v", operation, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: HTTP %d", operation, apiErr.StatusCode)

	var p problem
	if len(apiErr.Body) > 0 && json.Unmarshal(apiErr.Body, &p) == nil {
		if p.Title != "" {
			fmt.Fprintf(&b, "\n%s%s", indent, detailLine(p.Title, p.Detail))
		}
		for _, e := range p.Errors {
			fmt.Fprintf(&b, "\n%s- %s", indent, detailLine(e.Title, e.Detail))
		}
	}

	if f.Verbose && len(apiErr.Body) > 0 {
		fmt.Fprintf(&b, "\n%s", strings.TrimRight(string(apiErr.Body), "\n"))
	}

	f.PrintError("%s", b.String())
}

func detailLine(title, detail string) string {
	switch {
	case detail == "":
		return title
	case title == "":
		return detail
	default:
		return title + ": " + detail
	}
}

func (f *Formatter) stdout() io.Writer {
	if f.Out == nil {
		return os.Stdout
	}
	return f.Out
}

func (f *Formatter) stderr() io.Writer {
	if f.Err == nil {
		return os.Stderr
	}
	return f.Err
}
