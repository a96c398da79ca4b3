package identity

import (
	"encoding/json"
	"errors"
	"strings"
)

// Code is a closed set of provider failure kinds.
type Code string

const (
	CodeUserNotFound         Code = "auth/user-not-found"
	CodeWrongPassword        Code = "auth/wrong-password"
	CodeInvalidEmail         Code = "auth/invalid-email"
	CodeUserDisabled         Code = "auth/user-disabled"
	CodeNetworkRequestFailed Code = "auth/network-request-failed"
	CodeTooManyRequests      Code = "auth/too-many-requests"
	CodeEmailAlreadyInUse    Code = "auth/email-already-in-use"
	CodeWeakPassword         Code = "auth/weak-password"
	CodeInvalidCredential    Code = "auth/invalid-credential"
	CodeOperationNotAllowed  Code = "auth/operation-not-allowed"
	CodeTokenExpired         Code = "auth/user-token-expired"
	CodeInternal             Code = "auth/internal-error"
)

// ErrNotConfigured is returned when no API key was supplied. It carries no Code.
var ErrNotConfigured = errors.New("identity: auth client is not configured; check FIREBASE_API_KEY")

// Error is a provider-reported failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the provider code from err. The boolean is false when err
// did not originate from the provider.
func CodeOf(err error) (Code, bool) {
	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Code, true
	}
	return "", false
}

// restErrorBody is the error envelope of the identity toolkit and secure token APIs.
type restErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseRESTError(body []byte) *Error {
	var envelope restErrorBody
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &Error{Code: CodeInternal, Message: strings.TrimSpace(string(body))}
	}
	raw := envelope.Error.Message
	return &Error{Code: codeFromReason(raw), Message: raw}
}

// codeFromReason maps REST reasons such as "WEAK_PASSWORD : Password should be
// at least 6 characters" onto Code values.
func codeFromReason(raw string) Code {
	reason, _, _ := strings.Cut(raw, " ")
	reason = strings.TrimSpace(strings.TrimSuffix(reason, ":"))

	switch reason {
	case "EMAIL_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD":
		return CodeWrongPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "USER_DISABLED":
		return CodeUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return CodeTooManyRequests
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return CodeWeakPassword
	case "INVALID_LOGIN_CREDENTIALS":
		return CodeInvalidCredential
	case "OPERATION_NOT_ALLOWED", "PASSWORD_LOGIN_DISABLED":
		return CodeOperationNotAllowed
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND":
		return CodeTokenExpired
	default:
		return CodeInternal
	}
}
