package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/secondhand/marketplace-backend/internal/models"
)

// RegisterBindingRules регистрирует доменные правила в валидаторе gin.
// Вызывается один раз при старте до создания роутера.
func RegisterBindingRules() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("validation: unexpected validator engine %T", binding.Validator.Engine())
	}
	return RegisterRules(v)
}

// RegisterRules добавляет теги listing_condition и offer_status.
// Имена полей в ошибках берутся из тегов json или form.
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	if err := v.RegisterValidation("listing_condition", func(fl validator.FieldLevel) bool {
		return models.IsValidCondition(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("offer_status", func(fl validator.FieldLevel) bool {
		return models.IsResolvedOfferStatus(fl.Field().String())
	})
}

// DescribeBindingError превращает ошибки валидатора в короткое сообщение для клиента.
func DescribeBindingError(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Invalid request body"
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, describeField(fe))
	}
	return strings.Join(messages, "; ")
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "offer_status":
		return "Invalid offer status"
	case "listing_condition":
		return fmt.Sprintf("%s must be a valid condition", field)
	case "gt":
		if field == "price" {
			return "Price must be a positive number"
		}
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return "invalid email format"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
