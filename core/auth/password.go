package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters of a password
const MinPasswordLength = 8

var (
	upperCase   = regexp.MustCompile(`[A-Z]`)
	lowerCase   = regexp.MustCompile(`[a-z]`)
	digits      = regexp.MustCompile(`\d`)
	specialChar = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// PasswordStrength reports which password requirements are met
type PasswordStrength struct {
	Length      bool   `json:"length"`
	UpperCase   bool   `json:"upper_case"`
	LowerCase   bool   `json:"lower_case"`
	Numbers     bool   `json:"numbers"`
	SpecialChar bool   `json:"special_char"`
	IsStrong    bool   `json:"is_strong"`
	Message     string `json:"message"`
}

// CheckPassword evaluates password against the password policy: at least 8
// characters with upper and lower case letters, a digit and a special character.
func CheckPassword(password string) PasswordStrength {
	s := PasswordStrength{
		Length:      utf8.RuneCountInString(password) >= MinPasswordLength,
		UpperCase:   upperCase.MatchString(password),
		LowerCase:   lowerCase.MatchString(password),
		Numbers:     digits.MatchString(password),
		SpecialChar: specialChar.MatchString(password),
	}
	s.IsStrong = s.Length && s.UpperCase && s.LowerCase && s.Numbers && s.SpecialChar

	var missing []string
	if !s.Length {
		missing = append(missing, "mínimo 8 caracteres")
	}
	if !s.UpperCase {
		missing = append(missing, "letra maiúscula")
	}
	if !s.LowerCase {
		missing = append(missing, "letra minúscula")
	}
	if !s.Numbers {
		missing = append(missing, "número")
	}
	if !s.SpecialChar {
		missing = append(missing, "símbolo especial")
	}
	if len(missing) > 0 {
		s.Message = "Senha fraca. Adicione: " + strings.Join(missing, ", ")
	} else {
		s.Message = "Senha forte ✓"
	}
	return s
}
