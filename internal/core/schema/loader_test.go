package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabula-lab/tabula/internal/core/attr"
	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
)

const sampleSchema = `
columns:
  - name: id
    type: int
    group_by:
      rule: unique
  - name: t
    type: float
    group_by:
      rule: interval
      start: 1
      step: 3
  - name: label
    type: text
  - name: active
    type: bool
`

func TestLoad(t *testing.T) {
	ctx, err := Load([]byte(sampleSchema))
	require.NoError(t, err)

	kind, ok := ctx.DeclaredKind("id")
	require.True(t, ok)
	require.Equal(t, attr.KindInt, kind)

	kind, ok = ctx.DeclaredKind("active")
	require.True(t, ok)
	require.Equal(t, attr.KindBool, kind)

	rule, ok := ctx.Rule("t")
	require.True(t, ok)
	require.Equal(t, Interval(1, 3), rule)

	_, ok = ctx.Rule("label")
	require.False(t, ok)

	require.Equal(t, []string{"id", "t"}, ctx.GroupingColumns())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no columns", yaml: `columns: []`},
		{name: "not yaml", yaml: `{columns: [`},
		{
			name: "empty column name",
			yaml: "columns:\n  - name: \"\"\n    type: int\n",
		},
		{
			name: "duplicate column",
			yaml: "columns:\n  - name: a\n    type: int\n  - name: a\n    type: text\n",
		},
		{
			name: "unsupported type",
			yaml: "columns:\n  - name: a\n    type: decimal\n",
		},
		{
			name: "unsupported rule",
			yaml: "columns:\n  - name: a\n    type: int\n    group_by:\n      rule: modulo\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidIntervalRule(t *testing.T) {
	_, err := Load([]byte("columns:\n  - name: a\n    type: text\n    group_by:\n      rule: interval\n      step: 2\n"))
	require.ErrorIs(t, err, coreerrors.ErrInvalidRule)

	_, err = Load([]byte("columns:\n  - name: a\n    type: int\n    group_by:\n      rule: interval\n      step: 0\n"))
	require.ErrorIs(t, err, coreerrors.ErrInvalidRule)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSchema), 0o600))

	ctx, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"active", "id", "label", "t"}, ctx.Columns())

	_, err = LoadFile(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}
