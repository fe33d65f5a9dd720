package collection

import (
	"sort"

	"github.com/google/uuid"

	"github.com/tabula-lab/tabula/internal/core/attr"
	"github.com/tabula-lab/tabula/internal/core/record"
)

// Group is the set of records sharing one group key. Membership is keyed by
// record identity, not attribute equality: two attribute-equal records built
// separately are distinct members.
type Group struct {
	id      uint64
	members map[uuid.UUID]*record.Record
}

func newGroup(id uint64) *Group {
	return &Group{id: id, members: make(map[uuid.UUID]*record.Record)}
}

// ID returns the shared group key of the members.
func (g *Group) ID() uint64 { return g.id }

// Size returns the member count. Groups inside a Collection are never empty.
func (g *Group) Size() int { return len(g.members) }

// Contains reports identity membership.
func (g *Group) Contains(r *record.Record) bool {
	_, ok := g.members[r.ID()]
	return ok
}

// Records returns the members in unspecified order.
func (g *Group) Records() []*record.Record {
	out := make([]*record.Record, 0, len(g.members))
	for _, r := range g.members {
		out = append(out, r)
	}
	return out
}

// clone copies the member set so derived collections never alias a group.
func (g *Group) clone() *Group {
	c := &Group{id: g.id, members: make(map[uuid.UUID]*record.Record, len(g.members))}
	for id, r := range g.members {
		c.members[id] = r
	}
	return c
}

// Collection maps group key to group. It never holds an empty group: every
// operation that would leave one drops the key instead.
type Collection struct {
	groups map[uint64]*Group
}

// Build partitions records by their precomputed group keys.
func Build(records []*record.Record) *Collection {
	c := &Collection{groups: make(map[uint64]*Group)}
	for _, r := range records {
		g, ok := c.groups[r.GroupID()]
		if !ok {
			g = newGroup(r.GroupID())
			c.groups[r.GroupID()] = g
		}
		g.members[r.ID()] = r
	}
	return c
}

// Len returns the number of groups.
func (c *Collection) Len() int { return len(c.groups) }

// Size returns the total record count across all groups.
func (c *Collection) Size() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.members)
	}
	return n
}

// Group looks up a group by key.
func (c *Collection) Group(id uint64) (*Group, bool) {
	g, ok := c.groups[id]
	return g, ok
}

// Groups returns the groups sorted by key, for deterministic output.
func (c *Collection) Groups() []*Group {
	out := make([]*Group, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Condition is a single-attribute comparison predicate: the named attribute
// must compare to Value with exactly the ordering Ord. Records whose
// attribute is missing or of a different kind than Value fail the predicate
// rather than erroring.
type Condition struct {
	Attr  string
	Value attr.Attr
	Ord   attr.Ordering
}

func (cond Condition) matches(r *record.Record) bool {
	a, ok := r.Attr(cond.Attr)
	if !ok {
		return false
	}
	ord, ok := attr.Compare(a, cond.Value)
	return ok && ord == cond.Ord
}

// Filter retains the records matching the condition. The receiver is
// untouched; groups left empty are dropped from the result.
func (c *Collection) Filter(cond Condition) *Collection {
	out := &Collection{groups: make(map[uint64]*Group)}
	for id, g := range c.groups {
		ng := newGroup(id)
		for rid, r := range g.members {
			if cond.matches(r) {
				ng.members[rid] = r
			}
		}
		if len(ng.members) > 0 {
			out.groups[id] = ng
		}
	}
	return out
}

// Intersect keeps, for every group key present on both sides, the records
// present by identity in both. Keys present on one side only are dropped.
func (c *Collection) Intersect(other *Collection) *Collection {
	out := &Collection{groups: make(map[uint64]*Group)}
	for id, g := range c.groups {
		og, ok := other.groups[id]
		if !ok {
			continue
		}
		ng := newGroup(id)
		for rid, r := range g.members {
			if _, ok := og.members[rid]; ok {
				ng.members[rid] = r
			}
		}
		if len(ng.members) > 0 {
			out.groups[id] = ng
		}
	}
	return out
}

// Unite merges both sides: keys present on either side appear in the result,
// with member sets joined by identity.
func (c *Collection) Unite(other *Collection) *Collection {
	out := &Collection{groups: make(map[uint64]*Group, len(c.groups))}
	for id, g := range c.groups {
		out.groups[id] = g.clone()
	}
	for id, og := range other.groups {
		g, ok := out.groups[id]
		if !ok {
			out.groups[id] = og.clone()
			continue
		}
		for rid, r := range og.members {
			g.members[rid] = r
		}
	}
	return out
}

// Subtract removes from each of the receiver's groups every record that is
// identity-present in the other side's same-key group. Keys absent from
// other pass through unchanged; emptied groups drop their key.
func (c *Collection) Subtract(other *Collection) *Collection {
	out := &Collection{groups: make(map[uint64]*Group)}
	for id, g := range c.groups {
		og, ok := other.groups[id]
		if !ok {
			out.groups[id] = g.clone()
			continue
		}
		ng := newGroup(id)
		for rid, r := range g.members {
			if _, gone := og.members[rid]; !gone {
				ng.members[rid] = r
			}
		}
		if len(ng.members) > 0 {
			out.groups[id] = ng
		}
	}
	return out
}
