package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportengine/internal/core/apperror"
)

const fixturesYAML = `
invoices:
  org-1:
    - {id: i1, customer_name: Acme, status: paid, amount: 100, issued_at: "2024-01-05"}
    - {id: i2, customer_name: Globex, status: draft, amount: 40, issued_at: "2024-01-17"}
    - {id: i3, customer_name: Acme, status: paid, amount: 250, issued_at: "2024-02-11"}
  org-2:
    - {id: z1, customer_name: Other, status: paid, amount: 9999}
`

const groupedYAML = `
entity: invoices
groupBy:
  - field: status
aggregations:
  - field: amount
    function: sum
    label: total
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEntities(t *testing.T) {
	out, err := execute(t, "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "invoices")
	assert.Contains(t, out, "work_orders")

	out, err = execute(t, "entities", "invoices", "--json")
	require.NoError(t, err)
	var def map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, "invoices", def["name"])

	_, err = execute(t, "entities", "ledgers")
	assert.ErrorContains(t, err, "unknown entity")
}

func TestRun_JSON(t *testing.T) {
	dir := t.TempDir()
	fixtures := writeFile(t, dir, "rows.yaml", fixturesYAML)
	config := writeFile(t, dir, "report.yaml", groupedYAML)

	out, err := execute(t, "run", "-c", config, "--fixtures", fixtures, "--org", "org-1", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Data      []map[string]any `json:"data"`
		Columns   []string         `json:"columns"`
		TotalRows int              `json:"totalRows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, []string{"status", "total"}, res.Columns)

	totals := map[string]float64{}
	for _, row := range res.Data {
		totals[row["status"].(string)] = row["total"].(float64)
	}
	assert.Equal(t, map[string]float64{"paid": 350, "draft": 40}, totals)
}

func TestRun_Table(t *testing.T) {
	dir := t.TempDir()
	fixtures := writeFile(t, dir, "rows.yaml", fixturesYAML)
	config := writeFile(t, dir, "report.json", `{"entity": "invoices", "fields": ["id", "customer_name"]}`)

	out, err := execute(t, "run", "-c", config, "--fixtures", fixtures, "--org", "org-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer Name")
	assert.Contains(t, out, "Globex")
	assert.NotContains(t, out, "Other")
	assert.Contains(t, out, "3 of 3 rows")
}

func TestRun_CSVToFile(t *testing.T) {
	dir := t.TempDir()
	fixtures := writeFile(t, dir, "rows.yaml", fixturesYAML)
	config := writeFile(t, dir, "report.yaml", "entity: invoices\nfields: [id]\nsorting: [{field: id, direction: desc}]\n")
	target := filepath.Join(dir, "out.csv")

	out, err := execute(t, "run", "-c", config, "--fixtures", fixtures, "--org", "org-1", "-f", "csv", "-o", target)
	require.NoError(t, err)
	assert.Empty(t, out)

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "Id\ni3\ni2\ni1\n", string(raw))
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	fixtures := writeFile(t, dir, "rows.yaml", fixturesYAML)
	config := writeFile(t, dir, "report.yaml", groupedYAML)
	bad := writeFile(t, dir, "bad.yaml", "entity: invoices\nfields: [amount_x]\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no org", args: []string{"run", "-c", config, "--fixtures", fixtures}, wantErr: "--org is required"},
		{name: "no source", args: []string{"run", "-c", config, "--org", "org-1"}, wantErr: "one of --fixtures or --dsn is required"},
		{name: "both sources", args: []string{"run", "-c", config, "--org", "org-1", "--fixtures", fixtures, "--dsn", "postgres://localhost/db"}, wantErr: "either --fixtures or --dsn"},
		{name: "xlsx to stdout", args: []string{"run", "-c", config, "--org", "org-1", "--fixtures", fixtures, "-f", "xlsx"}, wantErr: "xlsx output needs --output"},
		{name: "unknown format", args: []string{"run", "-c", config, "--org", "org-1", "--fixtures", fixtures, "-f", "pdf"}, wantErr: "unsupported export format"},
		{name: "missing config file", args: []string{"run", "-c", filepath.Join(dir, "nope.yaml"), "--org", "org-1", "--fixtures", fixtures}, wantErr: "nope.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REPORTCTL_ORG", "")
			t.Setenv("REPORTCTL_DSN", "")
			_, err := execute(t, tt.args...)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	_, err := execute(t, "run", "-c", bad, "--org", "org-1", "--fixtures", fixtures)
	assert.True(t, apperror.IsConfiguration(err), err)
}
