package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Registry is the canonical entity list.
type Registry struct {
	Version  string   `yaml:"version"`
	Entities []Entity `yaml:"entities"`

	// Path is the file the registry was loaded from, if any.
	Path string `yaml:"-"`
}

// Entity is a canonical entity.
type Entity struct {
	// Name is the canonical spelling.
	Name string `yaml:"name"`
	// Code is a stable identifier such as an ISO 3166 alpha-3 code.
	Code string `yaml:"code,omitempty"`
	// Type classifies the entity.
	Type EntityType `yaml:"type,omitempty"`
	// Aliases are alternative spellings that resolve to Name.
	Aliases StringOrArray `yaml:"aliases,omitempty"`
}

// EntityType classifies a canonical entity.
type EntityType string

const (
	TypeCountry     EntityType = "country"
	TypeHistorical  EntityType = "historical"
	TypeAggregate   EntityType = "aggregate"
	TypeContinent   EntityType = "continent"
	TypeIncomeGroup EntityType = "income_group"
	TypeOther       EntityType = "other"
)

// IsValid returns true for the known entity types.
func (t EntityType) IsValid() bool {
	switch t {
	case TypeCountry, TypeHistorical, TypeAggregate, TypeContinent, TypeIncomeGroup, TypeOther:
		return true
	default:
		return false
	}
}

// Find returns the entity with the given canonical name, or nil.
func (r *Registry) Find(name string) *Entity {
	for i := range r.Entities {
		if r.Entities[i].Name == name {
			return &r.Entities[i]
		}
	}

	return nil
}

// StringOrArray is a list of strings that may be written in YAML as a
// single scalar.
type StringOrArray []string

// UnmarshalYAML accepts either a single string or an array of strings.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		err := node.Decode(&arr)
		if err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("line %d: expected string or array, got %v", node.Line, node.Kind)
	}
}
