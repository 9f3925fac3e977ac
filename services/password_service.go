package services

import (
	"errors"
	"strings"
)

var (
	ErrPasswordTooShort = errors.New("Password must be at least 6 characters long")
	ErrPasswordCommon   = errors.New("Password is too common")
)

// PasswordValidator applies the registration password policy.
type PasswordValidator struct {
	minLength       int
	commonPasswords map[string]bool
}

func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		minLength: 6,
		commonPasswords: map[string]bool{
			"password": true,
			"123456":   true,
			"1234567":  true,
			"12345678": true,
			"qwerty":   true,
			"abc123":   true,
			"111111":   true,
			"letmein":  true,
			"welcome":  true,
			"admin":    true,
		},
	}
}

func (pv *PasswordValidator) ValidatePassword(password string) error {
	if len(password) < pv.minLength {
		return ErrPasswordTooShort
	}
	if pv.commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}
	return nil
}
