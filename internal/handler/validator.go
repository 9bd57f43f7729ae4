package handler

import (
	"github.com/go-playground/validator/v10"

	"wastepoints/internal/service"
)

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator with the project's custom tags
// registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("serial", func(fl validator.FieldLevel) bool {
		return service.ValidSerial(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
