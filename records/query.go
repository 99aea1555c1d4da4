package records

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/professorSergio12/Stock-Broker/utils"
)

var validate = newValidator()

// newValidator reports fields by their query parameter name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateQuery runs the struct validation on q and folds the first failure
// into a ValidationError.
func validateQuery(q any) error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	fields := utils.ProcessValidationErrors(err)
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return utils.NewValidationError(names[0], "failed '%s' validation", fields[names[0]])
}

func (q HoldingsQuery) Validate() error {
	return validateQuery(q)
}

func (q SecurityQuery) Validate() error {
	if strings.TrimSpace(q.Security) == "" {
		return utils.NewValidationError("security", "is required")
	}
	return validateQuery(q)
}
