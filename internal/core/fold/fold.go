package fold

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tabula-lab/tabula/internal/core/attr"
	"github.com/tabula-lab/tabula/internal/core/collection"
	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
	"github.com/tabula-lab/tabula/internal/core/record"
)

// Operation names a fold: an operator plus, for sum and avg, the numeric
// attribute to aggregate. Records lacking the attribute contribute zero
// instead of erroring — partially-populated rows participate, at the cost of
// silently under-counting the groups they belong to.
type Operation struct {
	Op    string
	Field string // ignored by count
}

// Validate checks the operation before any group is visited.
func (op Operation) Validate() error {
	if !ValidOperator(op.Op) {
		return fmt.Errorf("unsupported fold operator %q", op.Op)
	}
	if op.Op != OpCount && op.Field == "" {
		return fmt.Errorf("fold operator %q requires a field", op.Op)
	}
	return nil
}

// Result is a snapshot: the per-group scalars computed by one operation over
// one collection at fold time. It is not updated if the source collection is
// superseded by later algebra operations.
type Result struct {
	source *collection.Collection
	op     Operation
	values map[uint64]attr.Attr
}

// Collection returns the collection the fold was computed over.
func (r *Result) Collection() *collection.Collection { return r.source }

// Operation returns the operation that produced the result.
func (r *Result) Operation() Operation { return r.op }

// Len returns the number of per-group scalars, one per source group.
func (r *Result) Len() int { return len(r.values) }

// Value returns the scalar computed for a group.
func (r *Result) Value(g *collection.Group) (attr.Attr, bool) {
	return r.ValueByID(g.ID())
}

// ValueByID returns the scalar computed for the group with the given key.
func (r *Result) ValueByID(id uint64) (attr.Attr, bool) {
	v, ok := r.values[id]
	return v, ok
}

// Fold computes the operation over every group of the collection, visiting
// each record exactly once.
func Fold(c *collection.Collection, op Operation) (*Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	agg := Operators[op.Op]

	values := make(map[uint64]attr.Attr, c.Len())
	for _, g := range c.Groups() {
		v, err := foldGroup(g, op, agg)
		if err != nil {
			return nil, err
		}
		values[g.ID()] = v
	}
	return &Result{source: c, op: op, values: values}, nil
}

// FoldParallel computes the same result as Fold by fanning independent groups
// out over at most workers goroutines. Group results merge by key, so the
// outcome is identical to the serial fold.
func FoldParallel(ctx context.Context, c *collection.Collection, op Operation, workers int) (*Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	agg := Operators[op.Op]

	groups := c.Groups()
	scalars := make([]attr.Attr, len(groups))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := foldGroup(g, op, agg)
			if err != nil {
				return err
			}
			scalars[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	values := make(map[uint64]attr.Attr, len(groups))
	for i, g := range groups {
		values[g.ID()] = scalars[i]
	}
	return &Result{source: c, op: op, values: values}, nil
}

func foldGroup(g *collection.Group, op Operation, agg Aggregator) (attr.Attr, error) {
	var acc decimal.Decimal
	first := true
	n := 0
	for _, r := range g.Records() {
		inc, err := extract(r, op)
		if err != nil {
			return attr.Attr{}, err
		}
		if first {
			acc = agg.Initial(inc)
			first = false
		} else {
			acc = agg.Apply(acc, inc)
		}
		n++
	}
	return agg.Finalize(acc, n), nil
}

// extract pulls the operation's numeric value from a record. Missing
// attributes contribute zero; non-numeric attributes are a fold-time error.
// Integer values widen exactly through decimal.
func extract(r *record.Record, op Operation) (decimal.Decimal, error) {
	if op.Op == OpCount {
		return decimal.Zero, nil
	}
	a, ok := r.Attr(op.Field)
	if !ok {
		return decimal.Zero, nil
	}
	switch a.Kind() {
	case attr.KindInt:
		return decimal.NewFromInt32(a.IntValue()), nil
	case attr.KindFloat:
		return decimal.NewFromFloat32(a.FloatValue()), nil
	case attr.KindBool, attr.KindText:
		return decimal.Decimal{}, fmt.Errorf("%w: attribute %q is %v",
			coreerrors.ErrAggregationType, op.Field, a.Kind())
	}
	return decimal.Decimal{}, fmt.Errorf("%w: attribute %q", coreerrors.ErrAggregationType, op.Field)
}
