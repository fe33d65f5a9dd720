package schema

import (
	"fmt"
	"sort"

	"github.com/tabula-lab/tabula/internal/core/attr"
	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
)

// RuleKind discriminates the two bucketing strategies.
type RuleKind int

const (
	// RuleUnique contributes the column's exact (or truncated, for floats)
	// value to the group key.
	RuleUnique RuleKind = iota

	// RuleInterval buckets numeric values into half-open intervals of width
	// Step starting at Start: floor((value - Start) / Step).
	RuleInterval
)

// ComponentRule is one column's contribution policy to the group key.
type ComponentRule struct {
	Kind  RuleKind
	Start int32
	Step  int32
}

// Unique returns the exact-value rule.
func Unique() ComponentRule { return ComponentRule{Kind: RuleUnique} }

// Interval returns a bucketing rule over [Start+n*Step, Start+(n+1)*Step).
func Interval(start, step int32) ComponentRule {
	return ComponentRule{Kind: RuleInterval, Start: start, Step: step}
}

// Ctx is the schema registry: declared column types plus the subset of
// columns that participate in group-key derivation. It is built once before
// any record is constructed and read-only afterward, so concurrent record
// construction needs no synchronization.
type Ctx struct {
	declared map[string]attr.Kind
	grouping map[string]ComponentRule
}

// New returns an empty schema.
func New() *Ctx {
	return &Ctx{
		declared: make(map[string]attr.Kind),
		grouping: make(map[string]ComponentRule),
	}
}

// Register declares a column's type from the sample's kind and, when rule is
// non-nil, its grouping rule. Re-registration silently replaces the prior
// declaration. Interval rules are rejected up front: step must be nonzero and
// the column must be numeric.
func (c *Ctx) Register(name string, sample attr.Attr, rule *ComponentRule) error {
	if rule != nil && rule.Kind == RuleInterval {
		if rule.Step == 0 {
			return fmt.Errorf("%w: column %q: interval step must be nonzero", coreerrors.ErrInvalidRule, name)
		}
		if !sample.IsNumeric() {
			return fmt.Errorf("%w: column %q: interval rule requires a numeric column, got %v",
				coreerrors.ErrInvalidRule, name, sample.Kind())
		}
	}
	c.declared[name] = sample.Kind()
	if rule != nil {
		c.grouping[name] = *rule
	}
	return nil
}

// DeclaredKind returns the registered kind for a column.
func (c *Ctx) DeclaredKind(name string) (attr.Kind, bool) {
	k, ok := c.declared[name]
	return k, ok
}

// Rule returns the grouping rule for a column, if it has one.
func (c *Ctx) Rule(name string) (ComponentRule, bool) {
	r, ok := c.grouping[name]
	return r, ok
}

// GroupingColumns returns the grouping column names in sorted order. The
// fixed order makes group keys independent of row input order.
func (c *Ctx) GroupingColumns() []string {
	names := make([]string, 0, len(c.grouping))
	for name := range c.grouping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Columns returns every declared column name in sorted order.
func (c *Ctx) Columns() []string {
	names := make([]string, 0, len(c.declared))
	for name := range c.declared {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse parses raw text as the declared type of the named column. This is the
// single entry point for turning raw input into typed attributes.
func (c *Ctx) Parse(name, raw string) (attr.Attr, error) {
	kind, ok := c.declared[name]
	if !ok {
		return attr.Attr{}, fmt.Errorf("%w: %q", coreerrors.ErrUnknownColumn, name)
	}
	a, err := attr.ParseAs(kind, raw)
	if err != nil {
		return attr.Attr{}, fmt.Errorf("column %q: %w", name, err)
	}
	return a, nil
}
