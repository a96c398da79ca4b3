package session

import (
	"fmt"

	"bodycoach/internal/identity"
)

// AuthError is a provider credential failure translated for display.
type AuthError struct {
	Code    identity.Code
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

var signInMessages = map[identity.Code]string{
	identity.CodeUserNotFound:         "このメールアドレスは登録されていません。",
	identity.CodeWrongPassword:        "パスワードが間違っています。",
	identity.CodeInvalidEmail:         "メールアドレスの形式が正しくありません。",
	identity.CodeUserDisabled:         "このアカウントは無効化されています。",
	identity.CodeNetworkRequestFailed: "ネットワークエラーが発生しました。接続を確認してください。",
	identity.CodeTooManyRequests:      "リクエストが多すぎます。しばらく待ってから再試行してください。",
}

var signUpMessages = map[identity.Code]string{
	identity.CodeEmailAlreadyInUse: "このメールアドレスは既に使用されています。",
	identity.CodeInvalidEmail:      "メールアドレスの形式が正しくありません。",
	identity.CodeWeakPassword:      "パスワードが弱すぎます。6文字以上で設定してください。",
}

const signUpFallbackMessage = "ユーザー登録に失敗しました。"

func signInError(err error) *AuthError {
	code, ok := identity.CodeOf(err)
	if !ok {
		return &AuthError{
			Message: fmt.Sprintf("認証エラーが発生しました。エミュレータが起動しているか確認してください。(%s)", messageOrUnknown(err)),
			Err:     err,
		}
	}
	if message, found := signInMessages[code]; found {
		return &AuthError{Code: code, Message: message, Err: err}
	}
	return &AuthError{Code: code, Message: fmt.Sprintf("ログインに失敗しました。(%s)", code), Err: err}
}

func signUpError(err error) *AuthError {
	code, _ := identity.CodeOf(err)
	if message, found := signUpMessages[code]; found {
		return &AuthError{Code: code, Message: message, Err: err}
	}
	return &AuthError{Code: code, Message: signUpFallbackMessage, Err: err}
}

func messageOrUnknown(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
