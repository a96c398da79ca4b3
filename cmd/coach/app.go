package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"bodycoach/internal/chat"
	"bodycoach/internal/forms"
	"bodycoach/internal/session"
)

const (
	cmdLogin    = "/login"
	cmdRegister = "/register"
	cmdLogout   = "/logout"
	cmdQuit     = "/quit"
)

const loadingTimeout = 10 * time.Second

var errQuit = errors.New("quit")

// app is a line-oriented rendition of the login, register and chat views.
type app struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func(prompt string) (string, error)

	manager *session.Manager
	guard   *session.Guard
	conv    *chat.Conversation
	path    string
}

func newApp(in io.Reader, out io.Writer, manager *session.Manager, conv *chat.Conversation) *app {
	a := &app{
		in:      bufio.NewReader(in),
		out:     out,
		manager: manager,
		guard:   session.NewGuard(manager),
		conv:    conv,
		path:    session.LoginPath,
	}
	a.readPassword = a.promptLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.readPassword = func(prompt string) (string, error) {
			fmt.Fprint(a.out, prompt)
			secret, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(a.out)
			return string(secret), err
		}
	}
	return a
}

// Navigate implements session.Navigator.
func (a *app) Navigate(path string) {
	a.path = path
}

func (a *app) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var err error
		switch a.path {
		case session.LoginPath:
			err = a.loginView(ctx)
		case forms.RegisterPath:
			err = a.registerView(ctx)
		default:
			err = a.homeView(ctx)
		}

		switch {
		case errors.Is(err, io.EOF), errors.Is(err, errQuit):
			return nil
		case err != nil:
			return err
		}
	}
}

func (a *app) homeView(ctx context.Context) error {
	if a.awaitState(ctx).Loading {
		return fmt.Errorf("auth state did not settle within %s", loadingTimeout)
	}

	var viewErr error
	a.guard.Render(a, func() {
		viewErr = a.chatView(ctx)
	})
	return viewErr
}

// awaitState blocks while the manager is still loading.
func (a *app) awaitState(ctx context.Context) session.State {
	changed := make(chan struct{}, 1)
	unsubscribe := a.manager.Subscribe(func(session.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	timeout := time.NewTimer(loadingTimeout)
	defer timeout.Stop()

	for {
		state := a.manager.State()
		if !state.Loading {
			return state
		}
		select {
		case <-changed:
		case <-timeout.C:
			return a.manager.State()
		case <-ctx.Done():
			return a.manager.State()
		}
	}
}

func (a *app) loginView(ctx context.Context) error {
	fmt.Fprintln(a.out, "== MY BODY COACH ログイン ==")
	fmt.Fprintf(a.out, "(新規登録は %s、終了は %s)\n", cmdRegister, cmdQuit)

	email, err := a.promptLine("メールアドレス: ")
	if err != nil {
		return err
	}
	if a.switchView(email) {
		return a.quitIfRequested(email)
	}
	password, err := a.readPassword("パスワード: ")
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "ログイン中...")
	a.printErrors(forms.SubmitLogin(ctx, a.manager, a, forms.Login{Email: email, Password: password}))
	return nil
}

func (a *app) registerView(ctx context.Context) error {
	fmt.Fprintln(a.out, "== MY BODY COACH 新規登録 ==")
	fmt.Fprintf(a.out, "(ログインは %s、終了は %s)\n", cmdLogin, cmdQuit)

	email, err := a.promptLine("メールアドレス: ")
	if err != nil {
		return err
	}
	if a.switchView(email) {
		return a.quitIfRequested(email)
	}
	password, err := a.readPassword("パスワード: ")
	if err != nil {
		return err
	}
	confirm, err := a.readPassword("パスワード（確認）: ")
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "登録中...")
	a.printErrors(forms.SubmitRegister(ctx, a.manager, a, forms.Register{
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}))
	return nil
}

func (a *app) chatView(ctx context.Context) error {
	user := a.manager.State().User
	fmt.Fprintln(a.out, "== MY BODY COACH ==")
	fmt.Fprintf(a.out, "%s でログイン中 (ログアウトは %s、終了は %s)\n", user.Email, cmdLogout, cmdQuit)
	fmt.Fprintln(a.out, "食事の内容を入力すると栄養素を計算します。")

	for {
		line, err := a.promptLine("> ")
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case cmdQuit:
			return errQuit
		case cmdLogout:
			if err := a.manager.Logout(ctx); err != nil {
				fmt.Fprintf(a.out, "ログアウトに失敗しました: %v\n", err)
				continue
			}
			return nil
		}

		sent := len(a.conv.Messages())
		fmt.Fprintln(a.out, "...")
		if _, err := a.conv.Send(ctx, line); err != nil {
			continue
		}
		for _, msg := range a.conv.Messages()[sent:] {
			if msg.Author == chat.AuthorAssistant {
				fmt.Fprintf(a.out, "[%s] %s\n", msg.Timestamp, msg.Text)
			}
		}
	}
}

// switchView handles the navigation commands accepted at the first prompt of
// a form and reports whether input was one of them.
func (a *app) switchView(input string) bool {
	switch strings.TrimSpace(input) {
	case cmdLogin:
		a.Navigate(session.LoginPath)
	case cmdRegister:
		a.Navigate(forms.RegisterPath)
	case cmdQuit:
	default:
		return false
	}
	return true
}

func (a *app) quitIfRequested(input string) error {
	if strings.TrimSpace(input) == cmdQuit {
		return errQuit
	}
	return nil
}

func (a *app) printErrors(errs forms.FieldErrors) {
	for _, field := range []string{forms.FieldEmail, forms.FieldPassword, forms.FieldConfirmPassword, forms.FieldGeneral} {
		if msg, ok := errs[field]; ok {
			fmt.Fprintf(a.out, "  ! %s\n", msg)
		}
	}
}

func (a *app) promptLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
