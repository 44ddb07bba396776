package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Invorya-api/internal/domain"
)

// validate instancia compartida (es segura para uso concurrente y cachea los structs).
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Reportar los campos con su nombre JSON/query: items[0].description, no Items[0].Description.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// bindBody parsea el JSON del cuerpo en out y valida sus tags.
func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return validateStruct(out)
}

// bindQuery parsea los query params en out y valida sus tags.
func bindQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return domain.NewValidationError("query", err.Error())
	}
	return validateStruct(out)
}

// validateStruct convierte el primer error del validador en *domain.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewValidationError("", err.Error())
	}
	fe := fieldErrs[0]
	return domain.NewValidationError(fieldPath(fe), ruleMessage(fe))
}

// fieldPath quita el nombre del struct raíz: "CreateInvoiceRequest.items[0].description" -> "items[0].description".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "datetime":
		return "formato esperado YYYY-MM-DD"
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "max":
		return "excede el máximo de " + fe.Param()
	case "min":
		return "debe ser al menos " + fe.Param()
	case "email":
		return "correo inválido"
	}
	return "no cumple la regla " + fe.Tag()
}
