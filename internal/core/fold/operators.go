package fold

import (
	"github.com/shopspring/decimal"

	"github.com/tabula-lab/tabula/internal/core/attr"
)

// Supported fold operators.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpAvg   = "avg"
)

// Aggregator defines the reduce semantics of a fold operator.
// To add a new operator: implement this interface and register it in
// Operators. The per-group loop becomes a single map lookup — no switch.
type Aggregator interface {
	// Initial returns the accumulator after the group's first record.
	// count → 1; sum/avg → the incoming value itself.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds an incoming value into the accumulator.
	Apply(current, incoming decimal.Decimal) decimal.Decimal

	// Finalize turns the accumulator into the group's scalar. n is the group
	// member count, known nonzero by the Collection invariant.
	Finalize(acc decimal.Decimal, n int) attr.Attr
}

// Operators is the registry of all supported fold operators.
var Operators = map[string]Aggregator{
	OpCount: countAgg{},
	OpSum:   sumAgg{},
	OpAvg:   avgAgg{},
}

// ValidOperator reports whether op is a registered fold operator.
func ValidOperator(op string) bool {
	_, ok := Operators[op]
	return ok
}

var one = decimal.NewFromInt(1)

// countAgg increments by 1 per record. The incoming value is ignored.
type countAgg struct{}

func (countAgg) Initial(_ decimal.Decimal) decimal.Decimal    { return one }
func (countAgg) Apply(cur, _ decimal.Decimal) decimal.Decimal { return cur.Add(one) }
func (countAgg) Finalize(acc decimal.Decimal, _ int) attr.Attr {
	return attr.Int(int32(acc.IntPart()))
}

// sumAgg accumulates the sum of incoming values.
type sumAgg struct{}

func (sumAgg) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }
func (sumAgg) Finalize(acc decimal.Decimal, _ int) attr.Attr {
	return attr.Float(float32(acc.InexactFloat64()))
}

// avgAgg accumulates like sum and divides by the member count at the end.
type avgAgg struct{}

func (avgAgg) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (avgAgg) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }
func (avgAgg) Finalize(acc decimal.Decimal, n int) attr.Attr {
	avg := acc.Div(decimal.NewFromInt(int64(n)))
	return attr.Float(float32(avg.InexactFloat64()))
}
