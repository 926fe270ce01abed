package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dusk-indust/systrav/internal/graph"
	"github.com/go-playground/validator/v10"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// CreateSystemInput creates a system, optionally under a parent.
type CreateSystemInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Category string `json:"category" validate:"max=255"`
	ParentID string `json:"parentId,omitempty" validate:"omitempty,max=255"`
}

// UpdateSystemInput renames the system ID to Name and sets its category.
type UpdateSystemInput struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required,max=255"`
	Category string `json:"category" validate:"max=255"`
}

// CreateInterfaceInput connects two existing systems.
type CreateInterfaceInput struct {
	SystemAID      string `json:"systemA" validate:"required"`
	SystemBID      string `json:"systemB" validate:"required"`
	ConnectionType string `json:"connectionType" validate:"max=255"`
	Directional    bool   `json:"directional"`
}

// UpdateInterfaceInput replaces every field of the interface ID.
type UpdateInterfaceInput struct {
	ID             string `json:"id" validate:"required"`
	SystemAID      string `json:"systemA" validate:"required"`
	SystemBID      string `json:"systemB" validate:"required"`
	ConnectionType string `json:"connectionType" validate:"max=255"`
	Directional    bool   `json:"directional"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so errors match what callers sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct tag validation and converts the first failure
// to a *graph.ValidationError.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &graph.ValidationError{
		Field:  fe.Field(),
		Value:  fmt.Sprint(fe.Value()),
		Reason: reasonFor(fe),
	}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// unknownSystem builds the error for a reference to a missing system,
// suggesting the closest existing name when one is near.
func unknownSystem(field, name string, g graph.Graph) error {
	ve := &graph.ValidationError{Field: field, Value: name, Reason: "no such system"}
	if s := suggest(name, g.NodeIDs()); s != "" {
		ve.Hint = fmt.Sprintf("did you mean %q?", s)
	}
	return ve
}

// suggest returns the candidate closest to name by edit distance, or ""
// when none is within a third of the name's length.
func suggest(name string, candidates []string) string {
	limit := len([]rune(name)) / 3
	if limit < 1 {
		limit = 1
	}
	best, bestDist := "", limit+1
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings(
			[]rune(strings.ToLower(name)),
			[]rune(strings.ToLower(c)),
			levenshtein.DefaultOptions,
		)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
