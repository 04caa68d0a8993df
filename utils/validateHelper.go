package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Models declare their rules once, on the `binding` tag gin already
	// reads. Pointing the standalone validator at the same tag keeps the
	// two paths from drifting.
	v.SetTagName("binding")
	return v
}

// ValidateStruct runs go-playground/validator over an input struct using its
// `binding` tags. Handlers call this before any persistence is touched.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func IsValidEmail(email string) bool {
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

var currencyCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

func IsValidCurrencyCode(code string) bool {
	return currencyCodePattern.MatchString(code)
}
