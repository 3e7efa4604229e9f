package evaluator

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	tests := []struct {
		golden string
		expr   string
	}{
		{"arithmetic", "1 + 2 * 3"},
		{"path", "//control[@id = 'ac-1']/title"},
		{"for", "for $x in (1, 2) return $x * 2"},
		{"call", "count(//control) gt 2"},
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			x, err := Compile(tt.expr, DefaultStaticContext())
			require.NoError(t, err)
			g.Assert(t, tt.golden, []byte(x.Tree()))
		})
	}
}

func TestFormatTreeMatchesTree(t *testing.T) {
	x, err := Compile("map { 'a': [1, 2] }?a?*", DefaultStaticContext())
	require.NoError(t, err)
	assert.Equal(t, x.Tree(), FormatTree(x.Root()))
	assert.Contains(t, x.Tree(), "Lookup[*] as item()\n")
	assert.Contains(t, x.Tree(), "ArrayConstructor[square] as array(*)\n")
}
