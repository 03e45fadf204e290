package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// phMobile matches Philippine mobile numbers in local (09XXXXXXXXX) or
// international (+639XXXXXXXXX) form.
var phMobile = regexp.MustCompile(`^(09|\+639)\d{9}$`)

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct or Var.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("ph_mobile", func(fl validator.FieldLevel) bool {
		return phMobile.MatchString(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return v.Var(s, "required,email") == nil
}

// PHMobile reports whether s is a Philippine mobile number.
func PHMobile(s string) bool {
	return v.Var(s, "required,ph_mobile") == nil
}
