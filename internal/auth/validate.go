package auth

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/rentiva/car-rental-backend/internal/model"
)

// RegisterInput carries the registration fields after decoding.  Normalize
// must be called before validation so that uniqueness checks and lookups all
// see the same lower-cased username/email.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	Role            string
	FirstName       string
	LastName        string
	Phone           string
}

// Normalize trims whitespace and lower-cases the identity fields.  The
// password fields are left untouched; whitespace may be significant there.
func (in *RegisterInput) Normalize() {
	in.Username = normalizeUsername(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Role == "" {
		in.Role = model.RoleCustomer
	}
}

// ValidateRegistration checks every field and collects all failures into a
// single FieldErrors map, so the client sees the complete picture in one
// round-trip instead of fixing fields one at a time.  A nil return means the
// input is acceptable.
func ValidateRegistration(in RegisterInput) FieldErrors {
	fe := FieldErrors{}
	if msg := checkUsername(in.Username); msg != "" {
		fe["username"] = msg
	}
	if msg := checkEmail(in.Email); msg != "" {
		fe["email"] = msg
	}
	if msg := CheckPasswordStrength(in.Password); msg != "" {
		fe["password"] = msg
	}
	if in.Password != in.PasswordConfirm {
		fe["password_confirm"] = "passwords do not match"
	}
	// Self-registration never grants privileges.  Staff and admin accounts
	// are provisioned through the admin role endpoint.
	if in.Role != model.RoleCustomer {
		fe["role"] = "only customer accounts may self-register"
	}
	if len(in.FirstName) > 100 {
		fe["first_name"] = "must be at most 100 characters"
	}
	if len(in.LastName) > 100 {
		fe["last_name"] = "must be at most 100 characters"
	}
	if len(in.Phone) > 32 {
		fe["phone"] = "must be at most 32 characters"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// CheckPasswordStrength returns an empty string for an acceptable password
// and a human-readable reason otherwise.  Policy: at least 8 characters,
// containing at least one letter and one digit.
func CheckPasswordStrength(pw string) string {
	if len(pw) < 8 {
		return "must be at least 8 characters"
	}
	if len(pw) > 128 {
		return "must be at most 128 characters"
	}
	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "must contain at least one letter and one digit"
	}
	return ""
}

// normalizeUsername is applied to every username before lookup or storage so
// uniqueness stays case-insensitive end to end.
func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func checkUsername(u string) string {
	if len(u) < 3 || len(u) > 32 {
		return "must be between 3 and 32 characters"
	}
	for _, r := range u {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-' {
			continue
		}
		return "may only contain letters, digits, '.', '_' and '-'"
	}
	return ""
}

func checkEmail(e string) string {
	if e == "" || len(e) > 254 {
		return "must be a valid email address"
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "must be a valid email address"
	}
	// mail.ParseAddress accepts local domains like "user@host"; require a dot
	// so plainly broken addresses are caught at the boundary.
	at := strings.LastIndexByte(e, '@')
	if at < 0 || !strings.Contains(e[at+1:], ".") {
		return "must be a valid email address"
	}
	return ""
}
