package session

import (
	"regexp"
	"strings"

	xerrors "storefront/internal/pkg/errors"
)

const minPasswordLength = 8

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	mobilePattern = regexp.MustCompile(`^(\+91)?[6-9]\d{9}$`)
	codePattern   = regexp.MustCompile(`^\d{4,8}$`)
)

func validateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return xerrors.Validation("please enter a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return xerrors.Validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func validateMobile(mobile string) error {
	if !mobilePattern.MatchString(strings.ReplaceAll(mobile, " ", "")) {
		return &xerrors.Error{Kind: xerrors.KindValidationFailure, Code: xerrors.CodeInvalidPhone, Message: "please enter a valid 10-digit mobile number"}
	}
	return nil
}

func validateCode(code string) error {
	if !codePattern.MatchString(strings.TrimSpace(code)) {
		return xerrors.Validation("please enter the numeric code you received")
	}
	return nil
}
