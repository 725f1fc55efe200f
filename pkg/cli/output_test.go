package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

type modelRow struct {
	Model  string `json:"model"`
	Status string `json:"status"`
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want string
	}{
		{"string", "3 models operational", "3 models operational\n"},
		{"struct", modelRow{"groq/llama", "limited"}, "{groq/llama limited}\n"},
		{"empty table", Table{Columns: []string{"MODEL"}}, "MODEL\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{}

			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if string(output) != tt.want {
				t.Errorf("Format() = %q, want %q", string(output), tt.want)
			}

			buf := &bytes.Buffer{}
			if err := formatter.FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	rows := []modelRow{{"groq/llama", "operational"}, {"anthropic/haiku", "error"}}

	compact, err := (&JSONFormatter{}).Format(rows)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := `[{"model":"groq/llama","status":"operational"},{"model":"anthropic/haiku","status":"error"}]`
	if string(compact) != want {
		t.Errorf("Format() = %s, want %s", compact, want)
	}

	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, rows); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	var decoded []modelRow
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[1] != rows[1] {
		t.Errorf("decoded = %v, want %v", decoded, rows)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  {")) {
		t.Errorf("expected indented output, got %s", buf.String())
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{
			name:   "text formatter",
			format: FormatText,
			want:   "*cli.TextFormatter",
		},
		{
			name:   "json formatter",
			format: FormatJSON,
			want:   "*cli.JSONFormatter",
		},
		{
			name:   "csv formatter",
			format: FormatCSV,
			want:   "*cli.CSVFormatter",
		},
		{
			name:   "default to text",
			format: "unknown",
			want:   "*cli.TextFormatter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format)
			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{}
	table := Table{
		Columns: []string{"model", "status"},
		Data:    [][]string{{"groq/llama", "operational"}, {"groq/mix,tral", "limited"}},
	}

	output, err := formatter.Format(table)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "model,status\ngroq/llama,operational\n\"groq/mix,tral\",limited\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}

	if _, err := formatter.Format("not a table"); err == nil {
		t.Error("Format() expected error for non-tabular data, got nil")
	}
}

func TestTextFormatterTable(t *testing.T) {
	formatter := &TextFormatter{}
	table := Table{
		Columns: []string{"MODEL", "STATUS"},
		Data:    [][]string{{"a/m", "operational"}, {"b/longer-model", "error"}},
	}

	output, err := formatter.Format(table)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "MODEL           STATUS\na/m             operational\nb/longer-model  error\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"yaml", FormatText, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
