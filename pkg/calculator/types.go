// Package calculator holds the calculator model: definitions, authoring
// validation, input parsing and result classification.
package calculator

import (
	"github.com/charlie0129/vetcalc/pkg/formula"
)

// Type tells built-in calculators apart from user-authored ones.
type Type string

const (
	TypeBuiltin Type = "builtin"
	TypeCustom  Type = "custom"
)

// Variable is one numeric input of a calculator. Key is the formula
// parameter the input is bound to.
type Variable struct {
	Name string `json:"name" yaml:"name"`
	Key  string `json:"key" yaml:"key"`
	Unit string `json:"unit" yaml:"unit"`
}

// Calculator is a named formula together with its inputs. The JSON layout is
// the import/export file format.
type Calculator struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Variables   []Variable `json:"variables" yaml:"variables"`
	Formula     string     `json:"formula" yaml:"formula"`
	ResultUnit  string     `json:"resultUnit" yaml:"resultUnit"`
	Type        Type       `json:"type" yaml:"type"`
	Group       string     `json:"group" yaml:"group"`
	HelpText    string     `json:"helpText,omitempty" yaml:"helpText,omitempty"`
}

// Keys returns the variable keys in declaration order, which is the
// parameter order of the formula.
func (c Calculator) Keys() []string {
	keys := make([]string, len(c.Variables))
	for i, v := range c.Variables {
		keys[i] = v.Key
	}
	return keys
}

// Compile compiles the formula against the variable keys.
func (c Calculator) Compile() (*formula.Func, error) {
	return formula.Compile(c.Keys(), c.Formula)
}

// IsCustom reports whether c was authored or imported by a user.
func (c Calculator) IsCustom() bool {
	return c.Type == TypeCustom
}

// Clone returns a deep copy of c.
func (c Calculator) Clone() Calculator {
	c.Variables = append([]Variable(nil), c.Variables...)
	return c
}

// Summary is the list view of a calculator.
type Summary struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        Type   `json:"type" yaml:"type"`
	Group       string `json:"group" yaml:"group"`
}

func (c Calculator) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
		Group:       c.Group,
	}
}
