package chart

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/statelayout/pkg/errors"
)

// State types recognized in definitions.
const (
	TypeAtomic   = "atomic"
	TypeCompound = "compound"
	TypeParallel = "parallel"
	TypeFinal    = "final"
	TypeHistory  = "history"
)

// Definition is one state and, recursively, its substates. The root
// definition describes the whole machine.
type Definition struct {
	ID      string       `json:"id" yaml:"id" toml:"id" validate:"stateid"`
	Label   string       `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty" validate:"max=256"`
	Type    string       `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty" validate:"omitempty,oneof=atomic compound parallel final history"`
	Initial string       `json:"initial,omitempty" yaml:"initial,omitempty" toml:"initial,omitempty"`
	Entry   []string     `json:"entry,omitempty" yaml:"entry,omitempty" toml:"entry,omitempty" validate:"dive,required"`
	Exit    []string     `json:"exit,omitempty" yaml:"exit,omitempty" toml:"exit,omitempty" validate:"dive,required"`
	States  []Definition `json:"states,omitempty" yaml:"states,omitempty" toml:"states,omitempty" validate:"dive"`
	On      []Transition `json:"on,omitempty" yaml:"on,omitempty" toml:"on,omitempty" validate:"dive"`
}

// Transition is one outgoing transition of a state. An empty Event is an
// event-less ("always") transition; an empty Target transitions to the
// source itself.
type Transition struct {
	Event   string   `json:"event,omitempty" yaml:"event,omitempty" toml:"event,omitempty" validate:"max=128"`
	Target  string   `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Guard   string   `json:"guard,omitempty" yaml:"guard,omitempty" toml:"guard,omitempty"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// Count returns the number of states in the definition, including itself.
func (d *Definition) Count() int {
	n := 1
	for i := range d.States {
		n += d.States[i].Count()
	}
	return n
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("stateid", func(fl validator.FieldLevel) bool {
		return errors.ValidateStateID(fl.Field().String()) == nil
	})
	return v
}

// Validate checks field constraints, sibling key uniqueness and that every
// initial state names an existing child. Errors carry
// [errors.ErrCodeInvalidDefinition].
func Validate(d *Definition) error {
	if d == nil {
		return errors.New(errors.ErrCodeInvalidDefinition, "definition is empty")
	}
	if err := validate.Struct(d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDefinition, formatValidationError(err), "invalid definition")
	}
	return validateTree(d, d.ID)
}

func validateTree(d *Definition, path string) error {
	seen := make(map[string]bool, len(d.States))
	for i := range d.States {
		id := d.States[i].ID
		if seen[id] {
			return errors.New(errors.ErrCodeInvalidDefinition, "%s: duplicate state %q", path, id)
		}
		seen[id] = true
	}
	if d.Initial != "" && !seen[d.Initial] {
		return errors.New(errors.ErrCodeInvalidDefinition, "%s: initial state %q does not exist", path, d.Initial)
	}
	if len(d.States) > 0 && (d.Type == TypeAtomic || d.Type == TypeFinal || d.Type == TypeHistory) {
		return errors.New(errors.ErrCodeInvalidDefinition, "%s: %s state cannot have substates", path, d.Type)
	}
	for i := range d.States {
		if err := validateTree(&d.States[i], path+"."+d.States[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// formatValidationError reports the first failed constraint with its
// namespace, which points at the offending state (e.g. "Definition.States[1].ID").
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Definition.")
	switch e.Tag() {
	case "stateid":
		return fmt.Errorf("%s: invalid state id %q", field, e.Value())
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "max":
		return fmt.Errorf("%s: must not exceed %s characters", field, e.Param())
	case "oneof":
		return fmt.Errorf("%s: must be one of %s", field, e.Param())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
