package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"text", FormatText},
		{"", FormatText},
		{"garbage", FormatText},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKVTextOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatText, &buf)

	err := out.KV("decision").
		Set("Visible", true).
		Set("Target Type", "post").
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "Visible:") {
		t.Errorf("text output missing key, got: %q", got)
	}
	if !strings.Contains(got, "true") {
		t.Errorf("text output missing value, got: %q", got)
	}
}

func TestKVJSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatJSON, &buf)

	err := out.KV("decision").
		Set("Visible", true).
		Set("Target Type", "post").
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var envelope struct {
		Meta Meta           `json:"meta"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if envelope.Meta.Type != "decision" {
		t.Errorf("meta.type = %q, want decision", envelope.Meta.Type)
	}
	if envelope.Data["visible"] != true {
		t.Errorf("data.visible = %v, want true", envelope.Data["visible"])
	}
	if envelope.Data["target_type"] != "post" {
		t.Errorf("data.target_type = %v, want post", envelope.Data["target_type"])
	}
}

func TestTableTextOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatText, &buf)

	err := out.Table("backends", "Name", "Default").
		Row("memory", false).
		Row("sqlite", true).
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"NAME", "DEFAULT", "memory", "sqlite"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q, got: %q", want, got)
		}
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatText, &buf)

	if err := out.Table("backends", "Name").Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("empty table should render a placeholder, got: %q", buf.String())
	}
}

func TestTableJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatJSON, &buf)

	err := out.Table("backends", "Name", "Default").
		Row("memory", false).
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("data rows = %d, want 1", len(envelope.Data))
	}
	if envelope.Data[0]["name"] != "memory" {
		t.Errorf("data[0].name = %v, want memory", envelope.Data[0]["name"])
	}
}

func TestResultText(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatText, &buf)

	err := out.Result("load", "loaded fixtures").
		Detail("items", 12).
		Detail("groups", 3).
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "loaded fixtures") {
		t.Errorf("result output missing message, got: %q", got)
	}
	if !strings.Contains(got, "items:") || !strings.Contains(got, "12") {
		t.Errorf("result output missing detail, got: %q", got)
	}
}

func TestErrorResult(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatJSON, &buf)

	if err := out.Error("check", errors.New("boom")).Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var envelope struct {
		Meta Meta           `json:"meta"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if envelope.Meta.Type != "check-error" {
		t.Errorf("meta.type = %q, want check-error", envelope.Meta.Type)
	}
	if envelope.Data["error"] != true {
		t.Errorf("data.error = %v, want true", envelope.Data["error"])
	}
	if envelope.Data["message"] != "boom" {
		t.Errorf("data.message = %v, want boom", envelope.Data["message"])
	}
}

func TestToJSONKey(t *testing.T) {
	if got := toJSONKey("Target Type"); got != "target_type" {
		t.Errorf("toJSONKey = %q, want target_type", got)
	}
}
