package coupon

import (
	"fmt"
	"regexp"

	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var (
	strictDate = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	validate   = newValidate()
)

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("dmydate", func(fl validator.FieldLevel) bool {
		return strictDate.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks a record against its struct tags
func Validate(record interface{}) error {
	if err := validate.Struct(record); err != nil {
		return crawlerrors.NewValidation(fmt.Sprintf("%T", record), "validation failed", err)
	}
	return nil
}
