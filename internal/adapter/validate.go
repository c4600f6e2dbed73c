package adapter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/amishk599/remoteboard/internal/model"
)

// configValidator reports field errors using the source config key names
// from the `cfg` struct tag.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("cfg"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateConfig runs struct validation on a decoded source config and turns
// failures into a *model.ConfigError.
func validateConfig(src model.Source, cfg any) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &model.ConfigError{SourceID: src.ID, Reason: err.Error()}
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, describeFieldError(fe))
	}
	return &model.ConfigError{SourceID: src.ID, Reason: strings.Join(reasons, "; ")}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

func configValue(src model.Source, key string) string {
	return strings.TrimSpace(src.Config[key])
}
