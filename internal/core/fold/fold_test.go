package fold

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabula-lab/tabula/internal/core/attr"
	"github.com/tabula-lab/tabula/internal/core/collection"
	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
	"github.com/tabula-lab/tabula/internal/core/record"
	"github.com/tabula-lab/tabula/internal/core/schema"
)

// testSchema declares: k (int, unique grouping), i (int), tag (text).
func testSchema(t *testing.T) *schema.Ctx {
	t.Helper()
	ctx := schema.New()
	unique := schema.Unique()
	require.NoError(t, ctx.Register("k", attr.Int(0), &unique))
	require.NoError(t, ctx.Register("i", attr.Int(0), nil))
	require.NoError(t, ctx.Register("tag", attr.Text(""), nil))
	return ctx
}

func singleGroup(t *testing.T, ctx *schema.Ctx, values []int) *collection.Collection {
	t.Helper()
	var records []*record.Record
	for _, v := range values {
		r, err := record.Build(ctx, []record.Pair{
			{Name: "k", Raw: "0"},
			{Name: "i", Raw: strconv.Itoa(v)},
		})
		require.NoError(t, err)
		records = append(records, r)
	}
	return collection.Build(records)
}

func scalarOfOnlyGroup(t *testing.T, r *Result) attr.Attr {
	t.Helper()
	groups := r.Collection().Groups()
	require.Len(t, groups, 1)
	v, ok := r.Value(groups[0])
	require.True(t, ok)
	return v
}

func TestFold_Count(t *testing.T) {
	ctx := testSchema(t)
	c := singleGroup(t, ctx, []int{1, 2, 3, 4, 5, 6, 7, 8})

	result, err := Fold(c, Operation{Op: OpCount})
	require.NoError(t, err)
	require.True(t, attr.Int(8).Equal(scalarOfOnlyGroup(t, result)))
}

func TestFold_SumAndAvg(t *testing.T) {
	ctx := testSchema(t)
	c := singleGroup(t, ctx, []int{233, 23, 2333, 0, -28, 233, 366, 243})

	sum, err := Fold(c, Operation{Op: OpSum, Field: "i"})
	require.NoError(t, err)
	require.True(t, attr.Float(3403).Equal(scalarOfOnlyGroup(t, sum)))

	avg, err := Fold(c, Operation{Op: OpAvg, Field: "i"})
	require.NoError(t, err)
	require.True(t, attr.Float(425.375).Equal(scalarOfOnlyGroup(t, avg)))
}

func TestFold_PerGroupScalars(t *testing.T) {
	ctx := testSchema(t)
	var records []*record.Record
	for g := 0; g < 3; g++ {
		for n := 0; n <= g; n++ {
			r, err := record.Build(ctx, []record.Pair{
				{Name: "k", Raw: strconv.Itoa(g)},
				{Name: "i", Raw: "10"},
			})
			require.NoError(t, err)
			records = append(records, r)
		}
	}
	c := collection.Build(records)

	result, err := Fold(c, Operation{Op: OpCount})
	require.NoError(t, err)
	require.Equal(t, 3, result.Len())

	counts := make(map[int32]bool)
	for _, g := range c.Groups() {
		v, ok := result.Value(g)
		require.True(t, ok)
		require.Equal(t, attr.KindInt, v.Kind())
		require.Equal(t, g.Size(), int(v.IntValue()))
		counts[v.IntValue()] = true
	}
	require.Equal(t, map[int32]bool{1: true, 2: true, 3: true}, counts)
}

func TestFold_MissingAttributeContributesZero(t *testing.T) {
	ctx := testSchema(t)
	with, err := record.Build(ctx, []record.Pair{{Name: "k", Raw: "0"}, {Name: "i", Raw: "40"}})
	require.NoError(t, err)
	without, err := record.Build(ctx, []record.Pair{{Name: "k", Raw: "0"}})
	require.NoError(t, err)
	c := collection.Build([]*record.Record{with, without})

	sum, err := Fold(c, Operation{Op: OpSum, Field: "i"})
	require.NoError(t, err)
	require.True(t, attr.Float(40).Equal(scalarOfOnlyGroup(t, sum)))

	// The absent record still participates in the average's denominator.
	avg, err := Fold(c, Operation{Op: OpAvg, Field: "i"})
	require.NoError(t, err)
	require.True(t, attr.Float(20).Equal(scalarOfOnlyGroup(t, avg)))
}

func TestFold_NonNumericTarget(t *testing.T) {
	ctx := testSchema(t)
	r, err := record.Build(ctx, []record.Pair{{Name: "k", Raw: "0"}, {Name: "tag", Raw: "x"}})
	require.NoError(t, err)
	c := collection.Build([]*record.Record{r})

	_, err = Fold(c, Operation{Op: OpSum, Field: "tag"})
	require.ErrorIs(t, err, coreerrors.ErrAggregationType)
}

func TestOperation_Validate(t *testing.T) {
	require.Error(t, Operation{Op: "median", Field: "i"}.Validate())
	require.Error(t, Operation{Op: OpSum}.Validate())
	require.NoError(t, Operation{Op: OpCount}.Validate())
	require.NoError(t, Operation{Op: OpAvg, Field: "i"}.Validate())
}

func TestFold_EmptyCollection(t *testing.T) {
	c := collection.Build(nil)
	result, err := Fold(c, Operation{Op: OpCount})
	require.NoError(t, err)
	require.Equal(t, 0, result.Len())
}

func TestFold_ResultIsSnapshot(t *testing.T) {
	ctx := testSchema(t)
	c := singleGroup(t, ctx, []int{1, 2, 3})

	result, err := Fold(c, Operation{Op: OpCount})
	require.NoError(t, err)

	// Deriving a new collection does not touch the snapshot.
	_ = c.Filter(collection.Condition{Attr: "i", Value: attr.Int(2), Ord: attr.Greater})
	require.True(t, attr.Int(3).Equal(scalarOfOnlyGroup(t, result)))
	require.Same(t, c, result.Collection())
}

func TestFoldParallel_MatchesSerial(t *testing.T) {
	ctx := testSchema(t)
	var records []*record.Record
	for i := 0; i < 200; i++ {
		r, err := record.Build(ctx, []record.Pair{
			{Name: "k", Raw: strconv.Itoa(i % 17)},
			{Name: "i", Raw: strconv.Itoa(i)},
		})
		require.NoError(t, err)
		records = append(records, r)
	}
	c := collection.Build(records)

	for _, op := range []Operation{
		{Op: OpCount},
		{Op: OpSum, Field: "i"},
		{Op: OpAvg, Field: "i"},
	} {
		serial, err := Fold(c, op)
		require.NoError(t, err)
		parallel, err := FoldParallel(context.Background(), c, op, 8)
		require.NoError(t, err)

		require.Equal(t, serial.Len(), parallel.Len())
		for _, g := range c.Groups() {
			want, ok := serial.Value(g)
			require.True(t, ok)
			got, ok := parallel.Value(g)
			require.True(t, ok)
			require.True(t, want.Equal(got), "op %s group %d", op.Op, g.ID())
		}
	}
}

func TestFoldParallel_Cancellation(t *testing.T) {
	ctx := testSchema(t)
	c := singleGroup(t, ctx, []int{1, 2, 3})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FoldParallel(cancelled, c, Operation{Op: OpCount}, 2)
	require.ErrorIs(t, err, context.Canceled)
}
