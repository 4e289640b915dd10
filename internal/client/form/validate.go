package form

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/userconsole/internal/common"
)

// Field names, shared with the backend payload keys.
const (
	FieldEmail     = "email"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldPhone     = "phone"
	FieldPassword  = "password"
	// FieldForm carries a submission failure that is not tied to one field.
	FieldForm = "form"
)

const MinPasswordLength = 8

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9\s()-]{10,15}$`)
)

// Data is the raw form input.
type Data struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
}

// Errors maps a field name to its message. An empty map means the form is valid.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error {
	return common.ErrValidation
}

// Validate checks d. Password is required unless isEdit; when given it must
// have at least MinPasswordLength characters in both modes.
func Validate(d Data, isEdit bool) Errors {
	errs := Errors{}

	switch {
	case strings.TrimSpace(d.Email) == "":
		errs[FieldEmail] = "email is required"
	case !emailRe.MatchString(d.Email):
		errs[FieldEmail] = "email is invalid"
	}

	if strings.TrimSpace(d.FirstName) == "" {
		errs[FieldFirstName] = "first name is required"
	}
	if strings.TrimSpace(d.LastName) == "" {
		errs[FieldLastName] = "last name is required"
	}

	if err := CheckPassword(d.Password, !isEdit); err != "" {
		errs[FieldPassword] = err
	}

	if d.Phone != "" && !phoneRe.MatchString(d.Phone) {
		errs[FieldPhone] = "phone is invalid"
	}

	return errs
}

// CheckPassword returns the password rule violation, or "" when p is acceptable.
func CheckPassword(p string, required bool) string {
	if p == "" {
		if required {
			return "password is required"
		}
		return ""
	}
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	return ""
}
