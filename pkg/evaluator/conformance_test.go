package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/nodes"
	"github.com/sandrolain/gometapath/pkg/types"
)

// conformanceGroup is one testdata/conformance/*.yaml file.
type conformanceGroup struct {
	Name       string            `yaml:"name"`
	Dataset    string            `yaml:"dataset"`
	Namespaces map[string]string `yaml:"namespaces"`
	Cases      []conformanceCase `yaml:"cases"`
}

type conformanceCase struct {
	ID        string            `yaml:"id"`
	Expr      string            `yaml:"expr"`
	Result    []string          `yaml:"result"`
	Error     string            `yaml:"error"`
	Unordered bool              `yaml:"unordered"`
	Bindings  map[string]string `yaml:"bindings"`
}

func loadConformance(t *testing.T) []conformanceGroup {
	t.Helper()
	files, err := filepath.Glob(filepath.Join("testdata", "conformance", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	groups := make([]conformanceGroup, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		var g conformanceGroup
		require.NoError(t, yaml.Unmarshal(data, &g), f)
		if g.Name == "" {
			g.Name = filepath.Base(f)
		}
		groups = append(groups, g)
	}
	return groups
}

func TestConformance(t *testing.T) {
	ctx := context.Background()
	var total, passed int

	for _, group := range loadConformance(t) {
		t.Run(group.Name, func(t *testing.T) {
			b := NewStaticContextBuilder()
			for prefix, uri := range group.Namespaces {
				b.Namespace(prefix, uri)
			}
			sc, err := b.Build()
			require.NoError(t, err)
			ev := New(WithStaticContext(sc), WithCaching(true))

			var focus item.Item
			if group.Dataset != "" {
				f, err := os.Open(filepath.Join("testdata", group.Dataset))
				require.NoError(t, err)
				doc, err := nodes.Parse(f, nodes.FormatFromPath(group.Dataset), "file:///testdata/"+group.Dataset)
				f.Close()
				require.NoError(t, err)
				focus = doc
			}

			for _, tc := range group.Cases {
				total++
				t.Run(tc.ID, func(t *testing.T) {
					bindings := make(map[string]item.Sequence, len(tc.Bindings))
					for name, v := range tc.Bindings {
						bindings[name] = item.Of(item.NewString(v))
					}

					out, err := evalCase(ctx, ev, tc.Expr, focus, bindings)
					if tc.Error != "" {
						if err == nil {
							t.Fatalf("expected error %s, got result %v", tc.Error, out)
						}
						code, ok := types.CodeOf(err)
						if !ok || code.String() != tc.Error {
							t.Fatalf("expected error %s, got %v", tc.Error, err)
						}
						passed++
						return
					}
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}

					got, err := atomizedStrings(out)
					if err != nil {
						t.Fatalf("atomizing result: %v", err)
					}
					want := tc.Result
					if want == nil {
						want = []string{}
					}
					if tc.Unordered {
						slices.Sort(got)
						want = slices.Sorted(slices.Values(want))
					}
					if diff := cmp.Diff(want, got); diff != "" {
						t.Fatalf("%s: result mismatch (-want +got):\n%s", tc.Expr, diff)
					}
					passed++
				})
			}
		})
	}

	t.Logf("conformance: %d/%d cases passed", passed, total)
}

func evalCase(ctx context.Context, ev *Evaluator, source string, focus item.Item, bindings map[string]item.Sequence) (item.Sequence, error) {
	expr, err := ev.Compile(source)
	if err != nil {
		return nil, err
	}
	return ev.EvalWithBindings(ctx, expr, focus, bindings)
}

func atomizedStrings(s item.Sequence) ([]string, error) {
	atoms, err := item.Atomize(s)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, atoms.Len())
	for it := range atoms.All() {
		out = append(out, it.(item.AtomicItem).StringValue())
	}
	return out, nil
}
