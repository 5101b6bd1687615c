package billing

import (
	stderrors "errors"
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nxtgenia/miniaturia/miniaturia/catalog"
)

// registers the plankey tag on gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	return v.RegisterValidation("plankey", func(fl validator.FieldLevel) bool {
		return catalog.Valid(fl.Field().String())
	})
}

// reports whether every binding failure comes from the plankey tag
func onlyUnknownPlan(err error) bool {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return false
	}

	for _, fe := range verrs {
		if fe.Tag() != "plankey" {
			return false
		}
	}

	return true
}
