package handler

import (
	"github.com/amoylab/cleanbill/internal/apiserver/database"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the enum tags used by the request DTOs to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	tags := map[string]func(string) bool{
		"property_type":  func(s string) bool { return database.PropertyType(s).Valid() },
		"invoice_status": func(s string) bool { return database.InvoiceStatus(s).Valid() },
		"payment_method": func(s string) bool { return database.PaymentMethod(s).Valid() },
	}
	for tag, valid := range tags {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
		if err != nil {
			return err
		}
	}
	return nil
}
