package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-portal/core"
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

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// RegisterValidators registers the user validation rules and their messages.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	validate.RegisterStructValidation(userStructValidation, NewUser{}, PasswordChange{})

	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)
	core.RegisterCustomTranslation(validate, translator, usernameOrEmailTag, usernameOrEmailText)
	for _, rule := range passwordPolicy {
		core.RegisterCustomTranslation(validate, translator, rule.tag, rule.text)
	}
}

// Custom Validators

// allRolesValidation checks that every provided role is a known one
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if RolePriority(role) == 0 {
			return false
		}
	}
	return true
}

// userStructValidation does struct level validation on NewUser and PasswordChange structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateUsernameAndEmail(usr, sl)
		validatePassword(usr.Password, usr.Name, usr.Username, usr.Email, sl)
	case PasswordChange:
		validatePassword(usr.Password, usr.usr.Name, usr.usr.Username, usr.usr.Email, sl)
	}
}

// validateUsernameAndEmail checks that one of Username or Email is provided
func validateUsernameAndEmail(nu NewUser, sl validator.StructLevel) {
	if len(nu.Username) == 0 && len(nu.Email) == 0 {
		sl.ReportError(nu.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(nu.Email, "email", "Email", usernameOrEmailTag, "")
	}
}

type passwordRule struct {
	tag, text string
	// broken reports whether pwd violates the rule. attrs are the user's name, username and email.
	broken func(pwd string, attrs []string) bool
}

// passwordPolicy is checked in order; only the first broken rule is reported.
var passwordPolicy = []passwordRule{
	{pwdMinLenTag, pwdMinLenText, func(pwd string, _ []string) bool {
		return len([]rune(pwd)) < pwdMinLen
	}},
	{pwdNoSpaceTag, pwdNoSpaceText, func(pwd string, _ []string) bool {
		return strings.IndexFunc(pwd, unicode.IsSpace) >= 0
	}},
	{pwdNotAllNumTag, pwdNotAllNumText, func(pwd string, _ []string) bool {
		return strings.IndexFunc(pwd, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	}},
	{pwdComplexityTag, pwdComplexityText, func(pwd string, _ []string) bool {
		return !(strings.IndexFunc(pwd, unicode.IsUpper) >= 0 &&
			strings.IndexFunc(pwd, unicode.IsLower) >= 0 &&
			strings.IndexFunc(pwd, unicode.IsDigit) >= 0 &&
			specialRegex.MatchString(pwd))
	}},
	{pwdAttrSimTag, pwdAttrSimText, func(pwd string, attrs []string) bool {
		for _, attr := range attrs {
			if similarity(pwd, attr) >= pwdMaxSim {
				return true
			}
		}
		return false
	}},
}

func validatePassword(pwd, name, uname, email string, sl validator.StructLevel) {
	attrs := []string{name, uname, email}
	for _, rule := range passwordPolicy {
		if rule.broken(pwd, attrs) {
			sl.ReportError(pwd, "password", "Password", rule.tag, "")
			return
		}
	}
}

func similarity(pwd, usrAttr string) float64 {
	if usrAttr == "" {
		return 0
	}
	a := strings.Split(strings.ToLower(pwd), "")
	b := strings.Split(strings.ToLower(usrAttr), "")
	return difflib.NewMatcher(a, b).QuickRatio()
}
