package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/muesli/reflow/wordwrap"
)

const textWrapWidth = 100

// Result renders an operation outcome: a message plus optional detail
// pairs. Created via Output.Result() or Output.Error().
type Result struct {
	out     *Output
	meta    Meta
	message string
	isError bool
	details map[string]any
}

// Detail adds a detail pair to the result.
func (r *Result) Detail(key string, value any) *Result {
	r.details[key] = value
	return r
}

// Render outputs the result in the configured format.
func (r *Result) Render() error {
	return r.out.Render(r)
}

// Meta returns the metadata.
func (r *Result) Meta() Meta {
	return r.meta
}

// RenderText writes the message, wrapped, with details indented below.
func (r *Result) RenderText(w io.Writer) error {
	msg := wordwrap.String(r.message, textWrapWidth)
	if r.isError {
		msg = r.out.styles.err.Render("error: " + msg)
	}
	if _, err := fmt.Fprintln(w, msg); err != nil {
		return err
	}

	keys := make([]string, 0, len(r.details))
	for k := range r.details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := r.out.styles.faint.Render(k + ":")
		if _, err := fmt.Fprintf(w, "  %s %s\n", key, formatValue(r.details[k])); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON returns the message and details as an object.
func (r *Result) RenderJSON() any {
	obj := map[string]any{"message": r.message}
	if r.isError {
		obj["error"] = true
	}
	for k, v := range r.details {
		obj[toJSONKey(k)] = v
	}
	return obj
}
