package record

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"

	"github.com/google/uuid"

	"github.com/tabula-lab/tabula/internal/core/attr"
	coreerrors "github.com/tabula-lab/tabula/internal/core/errors"
	"github.com/tabula-lab/tabula/internal/core/schema"
)

// Pair is one raw (column name, raw text) cell as delivered by a row source.
type Pair struct {
	Name string
	Raw  string
}

// Record is an immutable row: typed attributes plus the group key derived
// from the schema's grouping rules at construction time. Records are shared
// by reference between collections; the uuid assigned at build time is the
// set-membership identity, so two records with identical attributes remain
// distinct set elements.
type Record struct {
	id      uuid.UUID
	attrs   map[string]attr.Attr
	groupID uint64
}

// Build parses every cell against the schema and derives the group key.
// It fails on the first unknown or unparseable column, and with
// ErrMissingGroupingAttribute when the row lacks a grouping column.
func Build(ctx *schema.Ctx, row []Pair) (*Record, error) {
	attrs := make(map[string]attr.Attr, len(row))
	for _, cell := range row {
		a, err := ctx.Parse(cell.Name, cell.Raw)
		if err != nil {
			return nil, err
		}
		attrs[cell.Name] = a
	}

	groupID, err := deriveGroupID(ctx, attrs)
	if err != nil {
		return nil, err
	}

	return &Record{id: uuid.New(), attrs: attrs, groupID: groupID}, nil
}

// ID returns the record's surrogate identity.
func (r *Record) ID() uuid.UUID { return r.id }

// GroupID returns the precomputed 64-bit group key.
func (r *Record) GroupID() uint64 { return r.groupID }

// Attr looks up a typed attribute by column name.
func (r *Record) Attr(name string) (attr.Attr, bool) {
	a, ok := r.attrs[name]
	return a, ok
}

// Len returns the number of attributes in the record.
func (r *Record) Len() int { return len(r.attrs) }

// deriveGroupID folds every grouping column's bucketed contribution into one
// FNV-64a hash. Columns are visited in the schema's sorted order, never input
// order, so permuting a row's cells cannot change its key.
func deriveGroupID(ctx *schema.Ctx, attrs map[string]attr.Attr) (uint64, error) {
	h := fnv.New64a()
	for _, name := range ctx.GroupingColumns() {
		a, ok := attrs[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", coreerrors.ErrMissingGroupingAttribute, name)
		}
		rule, _ := ctx.Rule(name)

		h.Write([]byte(name))
		h.Write([]byte{0xff}) // separator between name and contribution

		switch a.Kind() {
		case attr.KindInt:
			writeInt64(h, bucket(int64(a.IntValue()), rule))
		case attr.KindFloat:
			truncated := int64(math.Trunc(float64(a.FloatValue())))
			writeInt64(h, bucket(truncated, rule))
		case attr.KindBool:
			if a.BoolValue() {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case attr.KindText:
			h.Write([]byte(a.TextValue()))
		}
	}
	return h.Sum64(), nil
}

// bucket applies the component rule to an already-truncated integer value.
// Interval buckets use floored division so values below Start land in
// consistently numbered negative buckets.
func bucket(v int64, rule schema.ComponentRule) int64 {
	if rule.Kind != schema.RuleInterval {
		return v
	}
	return floorDiv(v-int64(rule.Start), int64(rule.Step))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func writeInt64(h hash.Hash64, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
