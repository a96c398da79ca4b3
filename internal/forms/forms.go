// Package forms validates and submits the login and register forms.
package forms

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"bodycoach/internal/session"
)

// Field names used as FieldErrors keys.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldGeneral         = "general"
)

// View paths.
const (
	// HomePath is where a successful submission lands.
	HomePath     = "/"
	RegisterPath = "/register"
)

const minPasswordLength = 6

const (
	loginFailedMessage    = "ログインに失敗しました。メールアドレスとパスワードを確認してください。"
	registerFailedMessage = "登録に失敗しました。メールアドレスが既に使用されている可能性があります。"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// FieldErrors maps a field name to its message. An empty map means valid.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{FieldEmail, FieldPassword, FieldConfirmPassword, FieldGeneral} {
		if msg, ok := e[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// Authenticator is satisfied by *session.Manager.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
}

// Login holds the login form input.
type Login struct {
	Email    string
	Password string
}

// Validate checks required fields only.
func (f Login) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(f.Email) == "" {
		errs[FieldEmail] = "メールアドレスを入力してください"
	}
	if f.Password == "" {
		errs[FieldPassword] = "パスワードを入力してください"
	}
	return errs
}

// Register holds the register form input.
type Register struct {
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks the email shape, password length and confirmation.
func (f Register) Validate() FieldErrors {
	errs := FieldErrors{}
	switch {
	case strings.TrimSpace(f.Email) == "":
		errs[FieldEmail] = "メールアドレスを入力してください"
	case !emailPattern.MatchString(f.Email):
		errs[FieldEmail] = "有効なメールアドレスを入力してください"
	}

	switch {
	case f.Password == "":
		errs[FieldPassword] = "パスワードを入力してください"
	case utf8.RuneCountInString(f.Password) < minPasswordLength:
		errs[FieldPassword] = "パスワードは6文字以上で入力してください"
	}

	if f.Password != f.ConfirmPassword {
		errs[FieldConfirmPassword] = "パスワードが一致しません"
	}
	return errs
}

// SubmitLogin validates, signs in and navigates home. Validation failures
// never reach auth.
func SubmitLogin(ctx context.Context, auth Authenticator, nav session.Navigator, f Login) FieldErrors {
	if errs := f.Validate(); len(errs) > 0 {
		return errs
	}
	if err := auth.SignIn(ctx, f.Email, f.Password); err != nil {
		return FieldErrors{FieldGeneral: loginFailedMessage}
	}
	nav.Navigate(HomePath)
	return nil
}

// SubmitRegister validates, signs up and navigates home. A mapped provider
// failure is shown as is.
func SubmitRegister(ctx context.Context, auth Authenticator, nav session.Navigator, f Register) FieldErrors {
	if errs := f.Validate(); len(errs) > 0 {
		return errs
	}
	if err := auth.SignUp(ctx, f.Email, f.Password); err != nil {
		var authErr *session.AuthError
		if errors.As(err, &authErr) && authErr.Message != "" {
			return FieldErrors{FieldGeneral: authErr.Message}
		}
		return FieldErrors{FieldGeneral: registerFailedMessage}
	}
	nav.Navigate(HomePath)
	return nil
}
