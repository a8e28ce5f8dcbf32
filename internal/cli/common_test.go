package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"reflect"
	"testing"
)

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{
			name:  "simple map",
			input: map[string]string{"key": "value"},
			want:  "{\n  \"key\": \"value\"\n}",
		},
		{
			name:  "empty map",
			input: map[string]string{},
			want:  "{}\n",
		},
		{
			name:  "array",
			input: []string{"a", "b", "c"},
			want:  "[\n  \"a\",\n  \"b\",\n  \"c\"\n]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatJSON(tt.input)
			if err != nil {
				t.Fatalf("formatJSON() error = %v", err)
			}

			// Verify it's valid JSON
			var v interface{}
			if err := json.Unmarshal([]byte(got), &v); err != nil {
				t.Errorf("formatJSON() produced invalid JSON: %v", err)
			}

			// For non-empty cases, verify structure
			if tt.want != "" {
				// Just verify it's valid JSON, exact formatting may vary
				_ = got
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	err := os.ErrNotExist
	got := formatError(err)
	if got == "" {
		t.Error("formatError() returned empty string")
	}
	if !contains(got, "Error:") {
		t.Errorf("formatError() = %q, expected to contain 'Error:'", got)
	}
}

func TestOutputJSON(t *testing.T) {
	data := map[string]string{"test": "value"}

	var buf bytes.Buffer
	if err := outputJSON(&buf, data); err != nil {
		t.Fatalf("outputJSON() error = %v", err)
	}

	var v map[string]string
	if err := json.Unmarshal(buf.Bytes(), &v); err != nil {
		t.Errorf("outputJSON() produced invalid JSON: %v", err)
	}
	if v["test"] != "value" {
		t.Errorf("outputJSON() = %q", buf.String())
	}
}

func TestParseEnvFlags(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    map[string][]string
		wantErr bool
	}{
		{name: "none", values: nil, want: map[string][]string{}},
		{name: "pairs", values: []string{"A=1", "B=x=y"}, want: map[string][]string{"A": {"1"}, "B": {"x=y"}}},
		{name: "empty value", values: []string{"A="}, want: map[string][]string{"A": {""}}},
		{name: "repeated key", values: []string{"A=1", "A=2"}, want: map[string][]string{"A": {"1", "2"}}},
		{name: "list", values: []string{"A=[linux, windows ]"}, want: map[string][]string{"A": {"linux", "windows"}}},
		{name: "empty list", values: []string{"A=[]"}, want: map[string][]string{}},
		{name: "missing equals", values: []string{"A"}, wantErr: true},
		{name: "missing key", values: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEnvFlags(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseEnvFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseEnvFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitEnv(t *testing.T) {
	fixed, matrix := splitEnv(map[string][]string{
		"GENERATOR": {"Ninja"},
		"TYPE":      {"Debug", "Release"},
	})
	if !reflect.DeepEqual(fixed, map[string]string{"GENERATOR": "Ninja"}) {
		t.Errorf("fixed = %v", fixed)
	}
	want := []map[string]string{{"TYPE": "Debug"}, {"TYPE": "Release"}}
	if !reflect.DeepEqual(matrix, want) {
		t.Errorf("matrix = %v, want %v", matrix, want)
	}

	if _, matrix := splitEnv(map[string][]string{"A": {"1"}}); matrix != nil {
		t.Errorf("single values should not form a matrix, got %v", matrix)
	}
}

func TestPrintFunctions(t *testing.T) {
	// Capture stdout
	oldStdout := os.Stdout
	rOut, wOut, _ := os.Pipe()
	os.Stdout = wOut

	PrintSuccess("Success message")
	PrintWarning("Warning message")
	PrintInfo("Info message")

	_ = wOut.Close()
	os.Stdout = oldStdout

	var bufOut bytes.Buffer
	_, _ = bufOut.ReadFrom(rOut)

	if bufOut.String() == "" {
		t.Error("PrintInfo should write to stdout")
	}
}

func TestPrintCount(t *testing.T) {
	if got := PrintCount(1, "package", "packages"); got != "1 package" {
		t.Errorf("PrintCount(1) = %q", got)
	}
	if got := PrintCount(3, "package", "packages"); got != "3 packages" {
		t.Errorf("PrintCount(3) = %q", got)
	}
}
