package calculator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/charlie0129/vetcalc/pkg/formula"
)

// Draft is an authoring request for a new custom calculator. Keys are
// derived from the variable names and the id is assigned by the catalog.
type Draft struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Variables   []DraftVariable `json:"variables" validate:"max=64,dive"`
	Formula     string          `json:"formula" validate:"required,max=65536"`
	ResultUnit  string          `json:"resultUnit" validate:"max=64"`
	Group       string          `json:"group" validate:"required,max=200"`
	HelpText    string          `json:"helpText,omitempty" validate:"max=8000"`
}

type DraftVariable struct {
	Name string `json:"name" validate:"required,max=200"`
	Unit string `json:"unit" validate:"required,max=64"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize trims the free-text fields. The formula is kept verbatim so
// positions in compile errors match what the author wrote.
func (d Draft) normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.ResultUnit = strings.TrimSpace(d.ResultUnit)
	d.Group = strings.TrimSpace(d.Group)
	d.HelpText = strings.TrimSpace(d.HelpText)
	if strings.TrimSpace(d.Formula) == "" {
		d.Formula = ""
	}
	vars := make([]DraftVariable, len(d.Variables))
	for i, v := range d.Variables {
		vars[i] = DraftVariable{Name: strings.TrimSpace(v.Name), Unit: strings.TrimSpace(v.Unit)}
	}
	d.Variables = vars
	return d
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Msg: err.Error(), Err: err}
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Draft.")
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			msg = fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		} else {
			msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
	default:
		msg = fmt.Sprintf("%s failed the %q check", field, fe.Tag())
	}
	return &ValidationError{Field: field, Msg: msg, Err: err}
}

// NewCustom validates d and turns it into a custom calculator with the given
// id. The formula is compiled against the derived keys and trial-run once
// with formula.DummyArgument for every input.
func NewCustom(d Draft, id string) (Calculator, error) {
	d = d.normalize()
	if err := validate.Struct(d); err != nil {
		return Calculator{}, fieldError(err)
	}

	names := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		names[i] = v.Name
	}
	keys := AssignKeys(names)

	vars := make([]Variable, len(d.Variables))
	for i, v := range d.Variables {
		field := fmt.Sprintf("variables[%d].name", i)
		switch {
		case keys[i] == "":
			return Calculator{}, &ValidationError{
				Field: field,
				Msg:   fmt.Sprintf("variable %q has no usable characters for a key (use letters, digits or _)", v.Name),
			}
		case !formula.IsIdentifier(keys[i]):
			return Calculator{}, &ValidationError{
				Field: field,
				Msg:   fmt.Sprintf("variable %q derives the key %q, which cannot be used in a formula", v.Name, keys[i]),
			}
		}
		vars[i] = Variable{Name: v.Name, Key: keys[i], Unit: v.Unit}
	}

	fn, err := formula.Compile(keys, d.Formula)
	if err != nil {
		return Calculator{}, &ValidationError{Field: "formula", Msg: "invalid formula: " + err.Error(), Err: err}
	}
	if err := fn.Validate(); err != nil {
		return Calculator{}, &ValidationError{Field: "formula", Msg: "invalid formula: " + err.Error(), Err: err}
	}

	return Calculator{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Variables:   vars,
		Formula:     d.Formula,
		ResultUnit:  d.ResultUnit,
		Type:        TypeCustom,
		Group:       d.Group,
		HelpText:    d.HelpText,
	}, nil
}

// NewCustomID returns a fresh custom calculator id. Ids sort by creation
// time.
func NewCustomID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "custom-" + id.String()
}
