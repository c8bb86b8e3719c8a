package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" table ", FormatTable, false},
		{"xml", "", true},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinterPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON, false)

	require.NoError(t, p.Print(map[string]any{"username": "berti", "roles": 2}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "berti", decoded["username"])
	assert.Equal(t, float64(2), decoded["roles"])
}

func TestPrinterPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML, false)

	require.NoError(t, p.Print(map[string]string{"username": "berti"}))

	var decoded map[string]string
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "berti", decoded["username"])
}

func TestPrinterPrintTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)

	table := NewTableData("USERNAME", "ROLES")
	table.AddRow("berti", "admin,operator")
	table.AddRow("fred", "")

	require.NoError(t, p.Print(table))

	out := buf.String()
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "berti")
	assert.Contains(t, out, "fred")
}

func TestPrinterTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)

	// Plain data that cannot render as a table is printed as JSON.
	require.NoError(t, p.Print(map[string]string{"username": "berti"}))
	assert.True(t, json.Valid(buf.Bytes()))
}

func TestPrinterFormat(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, FormatYAML, false)
	assert.Equal(t, FormatYAML, p.Format())
}

func TestPrinterMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)

	p.Println("plain line")
	p.Printf("user %s\n", "berti")
	p.Success("done")
	p.Warning("careful")

	out := buf.String()
	assert.Contains(t, out, "plain line")
	assert.Contains(t, out, "user berti")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "careful")
	assert.NotContains(t, out, "\033[", "color disabled")
}

func TestPrinterColorMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, true)

	p.Success("done")
	p.Warning("careful")

	out := buf.String()
	assert.Contains(t, out, "\033[32m")
	assert.Contains(t, out, "\033[33m")
}
