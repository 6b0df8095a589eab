package staff

import (
	"errors"
	"fmt"
	"sort"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kanisa/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"
)

// InitValidators registers the staff validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)

	validate.RegisterStructValidation(newStaffStructValidation, NewStaff{})
	core.RegisterCustomTranslation(validate, translator, usernameOrEmailTag, usernameOrEmailText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
}

// Custom Validators

// allRolesValidation checks that provided roles are all in AllRoles
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	known := make([]string, len(AllRoles))
	copy(known, AllRoles)
	sort.Strings(known)
	for _, role := range roles {
		idx := sort.SearchStrings(known, role)
		if idx == len(known) || known[idx] != role {
			return false
		}
	}
	return true
}

// newStaffStructValidation does struct level validation on NewStaff.
func newStaffStructValidation(sl validator.StructLevel) {
	ns := sl.Current().Interface().(NewStaff)
	if len(ns.Username) == 0 && len(ns.Email) == 0 {
		sl.ReportError(ns.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(ns.Email, "email", "Email", usernameOrEmailTag, "")
	}
	validatePassword(ns.Password, sl)
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
func validatePassword(pwd string, sl validator.StructLevel) {
	if tag := passwordPolicyViolation(pwd); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// passwordPolicyViolation returns the tag of the first policy rule pwd breaks, or "".
func passwordPolicyViolation(pwd string) string {
	if len(pwd) < pwdMinLen {
		return pwdMinLenTag
	}
	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len([]rune(pwd)) {
		return pwdNotAllNumTag
	}
	return ""
}

// CheckPasswordPolicy returns a ValidationError on the password field when pwd breaks the password policy.
func CheckPasswordPolicy(pwd string) error {
	var text string
	switch passwordPolicyViolation(pwd) {
	case "":
		return nil
	case pwdMinLenTag:
		text = pwdMinLenText
	case pwdNoSpaceTag:
		text = pwdNoSpaceText
	case pwdNotAllNumTag:
		text = pwdNotAllNumText
	}
	return core.NewValidationError(errors.New(text), core.FieldError{Field: "password", Error: text})
}
