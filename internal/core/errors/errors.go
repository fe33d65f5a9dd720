package errors

import "errors"

// Sentinel errors for the engine. Callers classify with errors.Is; each layer
// wraps these with fmt.Errorf("...: %w", ...) to carry the column, value, or
// rule that triggered the failure.
var (
	// ErrUnknownColumn indicates raw input references a column the schema
	// never declared.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrTypeMismatch indicates raw text could not be parsed as the column's
	// declared type.
	ErrTypeMismatch = errors.New("value does not match declared column type")

	// ErrMissingGroupingAttribute indicates a row lacks a value for a column
	// required by a grouping rule.
	ErrMissingGroupingAttribute = errors.New("grouping column missing from row")

	// ErrInvalidRule indicates an interval rule with step 0, or an interval
	// rule applied to a non-numeric column.
	ErrInvalidRule = errors.New("invalid grouping rule")

	// ErrAggregationType indicates a fold targets a non-numeric attribute.
	ErrAggregationType = errors.New("aggregation must target a numeric attribute")
)
