package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tabula-lab/tabula/internal/core/attr"
)

// rawSchema is the on-disk YAML shape of a schema definition file.
type rawSchema struct {
	Columns []rawColumn `yaml:"columns"`
}

type rawColumn struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	GroupBy *rawGroupBy `yaml:"group_by"`
}

type rawGroupBy struct {
	Rule  string `yaml:"rule"` // unique | interval
	Start int32  `yaml:"start"`
	Step  int32  `yaml:"step"`
}

// LoadFile reads a schema definition from a YAML file and builds the registry.
// Definitions are loaded once at startup and cached in memory — no hot reload.
func LoadFile(path string) (*Ctx, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	ctx, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return ctx, nil
}

// Load parses a YAML schema definition and builds the registry.
func Load(data []byte) (*Ctx, error) {
	var raw rawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if len(raw.Columns) == 0 {
		return nil, fmt.Errorf("schema defines no columns")
	}

	ctx := New()
	seen := make(map[string]bool, len(raw.Columns))
	for _, col := range raw.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column with empty name")
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("column %q: duplicate declaration", col.Name)
		}
		seen[col.Name] = true

		sample, err := sampleForType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}

		var rule *ComponentRule
		if col.GroupBy != nil {
			r, err := ruleFor(col.GroupBy)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name, err)
			}
			rule = &r
		}

		if err := ctx.Register(col.Name, sample, rule); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func sampleForType(typ string) (attr.Attr, error) {
	switch typ {
	case "int", "integer":
		return attr.Int(0), nil
	case "float":
		return attr.Float(0), nil
	case "bool", "boolean":
		return attr.Bool(false), nil
	case "text", "string":
		return attr.Text(""), nil
	}
	return attr.Attr{}, fmt.Errorf("unsupported column type %q", typ)
}

func ruleFor(gb *rawGroupBy) (ComponentRule, error) {
	switch gb.Rule {
	case "unique", "":
		return Unique(), nil
	case "interval":
		return Interval(gb.Start, gb.Step), nil
	}
	return ComponentRule{}, fmt.Errorf("unsupported grouping rule %q", gb.Rule)
}
