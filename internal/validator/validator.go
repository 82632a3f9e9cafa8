package validator

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"storefront/internal/domain/model"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// messages use the json field names
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})

		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("emaillike", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return model.Category(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
			return model.Gender(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("season", func(fl validator.FieldLevel) bool {
			return model.Season(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			return model.PaymentMethod(fl.Field().String()).Valid()
		})

		validate = v
	})
	return validate
}

// Struct validates s and returns the first problem as a readable error.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return errors.New(message(verrs[0]))
	}
	return err
}

// IsHTTPURL accepts only absolute http or https URLs.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "httpurl":
		return field + " must be a valid http/https URL"
	case "emaillike":
		return "please provide a valid email address"
	case "category":
		return field + " must be one of " + joinValues(model.Categories)
	case "gender":
		return field + " must be one of " + joinValues(model.Genders)
	case "season":
		return field + " must be one of " + joinValues(model.Seasons)
	case "payment_method":
		return field + " must be one of " + joinValues(model.PaymentMethods)
	}
	return field + " is invalid"
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}

// EchoValidator plugs Struct into echo's c.Validate.
type EchoValidator struct{}

func (EchoValidator) Validate(i interface{}) error {
	return Struct(i)
}
