package controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/yashrajoria/grocery-backend/common/errors"
)

func init() {
	// Report request fields by their JSON names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// bindError turns a ShouldBindJSON failure into a 400 that lists the
// offending fields when the failure came from validation.
func bindError(message string, err error) *apperrors.Error {
	appErr := apperrors.Validation(message).Wrap(err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		appErr = appErr.With("fields", fields)
	}
	return appErr
}
