package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gometapath/pkg/types"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestEval(t *testing.T) {
	catalog := filepath.Join("..", "..", "testdata", "catalog.xml")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"atomic", []string{"eval", "-e", "1 + 2 * 3"}, "7\n"},
		{"sequence", []string{"eval", "-e", "1 to 3"}, "1\n2\n3\n"},
		{"nodes by path", []string{"eval", "-e", "//group/@id", "-c", catalog}, "/catalog/group[1]/@id\n/catalog/group[2]/@id\n"},
		{"as string", []string{"eval", "-e", "//control/title", "-c", catalog, "--as", "string"}, "Policy and Procedures\n"},
		{"as boolean", []string{"eval", "-e", "//control", "-c", catalog, "--as", "boolean"}, "true\n"},
		{"empty", []string{"eval", "-e", "()"}, ""},
		{"variable", []string{"eval", "-e", "'id=' || $id", "--var", "id=ac-1"}, "id=ac-1\n"},
		{"namespace flag", []string{"eval", "-e", "count(//c:control)", "-c", catalog, "-n", "c=http://example.com/ns/catalog"}, "3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalErrors(t *testing.T) {
	_, _, err := run(t, "eval", "-e", "1 +")
	require.Error(t, err)
	assert.True(t, types.Is(err, types.ErrInvalidPathGrammar))

	_, _, err = run(t, "eval", "-e", "1", "--as", "float")
	assert.Error(t, err)

	_, _, err = run(t, "eval", "-e", "1", "--var", "=x")
	assert.Error(t, err)

	_, _, err = run(t, "eval")
	assert.Error(t, err, "--expression is required")

	var buf bytes.Buffer
	_, _, err = run(t, "eval", "-e", "(1, 2) eq 1")
	require.Error(t, err)
	printError(&buf, err)
	assert.Contains(t, buf.String(), "error: [MPTY0004]")
	assert.Contains(t, buf.String(), "  in: (1, 2) eq 1\n")
	assert.Contains(t, buf.String(), "  at Comparison '(1, 2) eq 1'\n")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "metapath.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
namespaces:
  c: http://example.com/ns/catalog
wildcard-fallback: false
`), 0o600))
	catalog := filepath.Join("..", "..", "testdata", "catalog.xml")

	out, _, err := run(t, "--config", cfg, "eval", "-e", "count(//c:control)", "-c", catalog)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, _, err = run(t, "--config", cfg, "eval", "-e", "count(//control)", "-c", catalog)
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, _, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "eval", "-e", "1")
	assert.Error(t, err)
}

func TestPrintTree(t *testing.T) {
	out, _, err := run(t, "print-tree", "-e", "1 + 2")
	require.NoError(t, err)
	assert.Equal(t, "Arithmetic[+] as xs:integer\n  Literal[1] as xs:integer\n  Literal[2] as xs:integer\n", out)
}

func TestListFunctions(t *testing.T) {
	out, _, err := run(t, "list-functions", "--prefix", "math")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, types.NSMath, lines[0])
	assert.Contains(t, out, "  math:sqrt(")
	assert.NotContains(t, out, "fn:count")

	out, _, err = run(t, "list-functions")
	require.NoError(t, err)
	assert.Contains(t, out, "  fn:count($arg as item()*) as xs:integer\n")

	_, _, err = run(t, "list-functions", "--prefix", "nope")
	assert.Error(t, err)
}

func TestVerboseLogging(t *testing.T) {
	_, errOut, err := run(t, "-v", "eval", "-e", "1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "level=DEBUG")
}
