package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	roomNumberRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,31}$`)
)

func init() {
	validate = validator.New()
	// roomnumber: 1-32 letters, digits or dashes, not starting with a dash.
	_ = validate.RegisterValidation("roomnumber", func(fl validator.FieldLevel) bool {
		return roomNumberRe.MatchString(fl.Field().String())
	})
}

// Validate returns failed field names mapped to the rule they broke, or nil.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out[fe.Field()] = rule
	}
	return out
}
