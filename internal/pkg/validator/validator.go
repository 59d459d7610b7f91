package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Usernames are URL- and log-safe: letters, digits, underscores and
// hyphens, starting with a letter or digit.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// RegisterCustom installs the domain validators on gin's binding engine.
// Call once before any request binding happens.
func RegisterCustom() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
}
