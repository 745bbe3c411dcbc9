package validate

import (
	"errors"
	"fmt"
	"strings"

	errprocess "intranet_chat/pkg/err"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct 驗證 struct tag，失敗回傳 ErrValidation
func Struct(op string, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return errprocess.Validation(op, strings.Join(msgs, "; "))
	}
	return errprocess.Wrap(errprocess.ErrValidation, op, err)
}
