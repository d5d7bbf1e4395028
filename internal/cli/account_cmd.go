// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jeranaias/fipepro/internal/session"
)

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

// accountPrompter checks the backend and that prompts are possible.
func accountPrompter(env *Env) (*Prompter, error) {
	if !env.Sessions.Available() {
		return nil, session.ErrUnavailable
	}
	if env.Args.JSON && !IsTTY() {
		return nil, &UsageError{Field: "stdin", Reason: "must be a terminal for account prompts"}
	}
	return env.newPrompter(), nil
}

func runLogin(env *Env) error {
	pr, err := accountPrompter(env)
	if err != nil {
		return err
	}
	defer pr.Close()

	p := NewArgParser(env.Args.Raw)
	email := p.Flag("email")
	if email == "" {
		if email, err = pr.Ask("E-mail", ""); err != nil {
			return err
		}
	}
	password, err := pr.Password("Senha")
	if err != nil {
		return err
	}

	ctx, cancel := env.Context()
	defer cancel()
	sess, err := env.Sessions.SignIn(ctx, email, password)
	if err != nil {
		return wrap("login", "", err)
	}
	return env.printAccount(ctx, sess, "Bem-vindo, "+sess.Name()+"!")
}

func runLogout(env *Env) error {
	ctx, cancel := env.Context()
	defer cancel()

	wasSignedIn := env.Sessions.Peek() != nil
	if err := env.Sessions.SignOut(ctx); err != nil {
		return wrap("logout", "", err)
	}
	return env.emit(AccountData{}, func(w io.Writer) {
		if wasSignedIn {
			fmt.Fprintln(w, SuccessStyle.Render("Você saiu da sua conta."))
		} else {
			fmt.Fprintln(w, DimStyle.Render("Nenhuma conta conectada."))
		}
	})
}

func runSignUp(env *Env) error {
	pr, err := accountPrompter(env)
	if err != nil {
		return err
	}
	defer pr.Close()

	var req session.SignUpRequest
	if req.FullName, err = pr.Ask("Nome", ""); err != nil {
		return err
	}
	if req.Email, err = pr.Ask("E-mail", ""); err != nil {
		return err
	}
	if req.Password, err = pr.Password(fmt.Sprintf("Senha (mínimo %d caracteres)", session.MinPasswordLength)); err != nil {
		return err
	}
	if req.ConfirmPassword, err = pr.Password("Confirme a senha"); err != nil {
		return err
	}

	ctx, cancel := env.Context()
	defer cancel()
	res, err := env.Sessions.SignUp(ctx, req)
	if err != nil {
		return wrap("signup", "", err)
	}
	if res.Session != nil {
		return env.printAccount(ctx, res.Session, "Cadastro realizado! Bem-vindo, "+res.Session.Name()+"!")
	}

	if !env.Sessions.Capabilities().VerificationCode {
		return env.emit(AccountData{}, func(w io.Writer) {
			fmt.Fprintln(w, SuccessStyle.Render("Cadastro realizado!"))
			fmt.Fprintln(w, "Verifique seu e-mail para confirmar a conta e depois execute: fipepro login")
		})
	}
	code, err := pr.Ask("Código enviado para "+req.Email, "")
	if err != nil {
		return err
	}
	sess, err := env.Sessions.VerifyCode(ctx, req.Email, code, false)
	if err != nil {
		return wrap("signup", "verify", err)
	}
	return env.printAccount(ctx, sess, "Conta confirmada! Bem-vindo, "+sess.Name()+"!")
}

// runReset requests a reset email. With verification codes enabled it
// also completes the recovery and sets the new password.
func runReset(env *Env) error {
	pr, err := accountPrompter(env)
	if err != nil {
		return err
	}
	defer pr.Close()

	email := NewArgParser(env.Args.Raw).Flag("email")
	if email == "" {
		if email, err = pr.Ask("E-mail", ""); err != nil {
			return err
		}
	}

	ctx, cancel := env.Context()
	defer cancel()
	if err := env.Sessions.RequestPasswordReset(ctx, email); err != nil {
		return wrap("reset", "", err)
	}
	if !env.Sessions.Capabilities().VerificationCode {
		return env.emit(AccountData{}, func(w io.Writer) {
			fmt.Fprintln(w, SuccessStyle.Render("Enviamos um link de recuperação para seu e-mail."))
		})
	}

	code, err := pr.Ask("Código de recuperação", "")
	if err != nil {
		return err
	}
	sess, err := env.Sessions.VerifyCode(ctx, email, code, true)
	if err != nil {
		return wrap("reset", "verify", err)
	}
	password, err := pr.Password("Nova senha")
	if err != nil {
		return err
	}
	confirm, err := pr.Password("Confirme a nova senha")
	if err != nil {
		return err
	}
	if err := session.ValidateSignUp(session.SignUpRequest{
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		FullName:        sess.Name(),
	}); err != nil {
		return wrap("reset", "password", err)
	}
	if err := env.Backend.UpdatePassword(ctx, sess.AccessToken, password); err != nil {
		return wrap("reset", "password", err)
	}
	return env.printAccount(ctx, sess, "Senha alterada. Você está conectado.")
}

func runWhoami(env *Env) error {
	ctx, cancel := env.Context()
	defer cancel()

	sess, err := env.Sessions.Current(ctx)
	if err != nil {
		return wrap("whoami", "", err)
	}
	return env.printAccount(ctx, sess, "")
}

// printAccount describes sess, asking the backend whether the email is
// confirmed when it can.
func (e *Env) printAccount(ctx context.Context, sess *session.Session, message string) error {
	if sess == nil {
		return e.emit(AccountData{}, func(w io.Writer) {
			fmt.Fprintln(w, DimStyle.Render("Nenhuma conta conectada. Use: fipepro login"))
		})
	}

	data := AccountData{
		SignedIn:  true,
		Email:     sess.Email,
		Name:      sess.Name(),
		UserID:    sess.UserID.String(),
		ExpiresAt: sess.ExpiresAt,
	}
	if u, err := e.Backend.GetUser(ctx, sess.AccessToken); err == nil {
		confirmed := u.ConfirmedAt != ""
		data.Confirmed = &confirmed
	} else {
		e.Logger.Debug("user lookup failed", "error", err)
	}

	return e.emit(data, func(w io.Writer) {
		if message != "" {
			fmt.Fprintln(w, SuccessStyle.Render(message))
		}
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Nome"), ValueStyle.Render(data.Name))
		fmt.Fprintf(w, "%s %s\n", RenderLabel("E-mail"), ValueStyle.Render(data.Email))
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Sessão expira"), ValueStyle.Render(data.ExpiresAt.Local().Format("02/01/2006 15:04")))
		if data.Confirmed != nil && !*data.Confirmed {
			fmt.Fprintln(w, WarningStyle.Render("E-mail ainda não confirmado."))
		}
	})
}
