// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fipepro/internal/session"
	"github.com/jeranaias/fipepro/internal/ui/styles"
)

// =============================================================================
// ACCOUNT FORM
// =============================================================================

type formMode int

const (
	formLogin formMode = iota
	formSignUp
	formReset
	formVerify
)

func (f formMode) title() string {
	switch f {
	case formSignUp:
		return "Criar conta"
	case formReset:
		return "Recuperar senha"
	case formVerify:
		return "Confirmar código"
	default:
		return "Entrar"
	}
}

// Input indices.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldCode
	fieldCount
)

// authForm holds the login, sign-up, reset and verification screens. The
// email input is shared so switching screens keeps what was typed.
type authForm struct {
	mode     formMode
	inputs   []textinput.Model
	focus    int
	err      string
	info     string
	busy     bool
	recovery bool
	caps     session.Capabilities
	theme    *styles.Theme
}

func newAuthForm(theme *styles.Theme, caps session.Capabilities) authForm {
	inputs := make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{"Seu nome", "voce@exemplo.com", "Senha", "Confirme a senha", "123456"}
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 128
		ti.Width = 36
		inputs[i] = ti
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldConfirm].EchoMode = textinput.EchoPassword
	inputs[fieldCode].CharLimit = 12

	return authForm{inputs: inputs, caps: caps, theme: theme}
}

// fields lists the visible inputs of the current mode, in tab order.
func (f authForm) fields() []int {
	switch f.mode {
	case formSignUp:
		return []int{fieldName, fieldEmail, fieldPassword, fieldConfirm}
	case formReset:
		return []int{fieldEmail}
	case formVerify:
		return []int{fieldEmail, fieldCode}
	default:
		return []int{fieldEmail, fieldPassword}
	}
}

func (f authForm) label(field int) string {
	switch field {
	case fieldName:
		return "Nome completo"
	case fieldEmail:
		return "E-mail"
	case fieldPassword:
		return "Senha"
	case fieldConfirm:
		return "Confirmar senha"
	default:
		return "Código"
	}
}

// open switches to mode, clears secrets and focuses the first field.
func (f *authForm) open(mode formMode, info string) tea.Cmd {
	f.mode = mode
	f.info = info
	f.err = ""
	f.busy = false
	if mode != formVerify {
		f.recovery = false
	}
	for _, i := range []int{fieldPassword, fieldConfirm, fieldCode} {
		f.inputs[i].SetValue("")
	}
	f.focus = 0
	return f.focusField()
}

func (f *authForm) focusField() tea.Cmd {
	fields := f.fields()
	var cmd tea.Cmd
	for pos, i := range fields {
		if pos == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *authForm) move(delta int) tea.Cmd {
	n := len(f.fields())
	f.focus = (f.focus + delta + n) % n
	return f.focusField()
}

func (f authForm) onLastField() bool {
	return f.focus == len(f.fields())-1
}

func (f *authForm) updateInput(msg tea.Msg) tea.Cmd {
	i := f.fields()[f.focus]
	var cmd tea.Cmd
	f.inputs[i], cmd = f.inputs[i].Update(msg)
	return cmd
}

func (f authForm) value(field int) string {
	return f.inputs[field].Value()
}

// submit builds the command for the current mode.
func (f *authForm) submit(s Sessions) tea.Cmd {
	f.busy = true
	f.err = ""
	mode := f.mode
	email := strings.TrimSpace(f.value(fieldEmail))
	password := f.value(fieldPassword)

	switch mode {
	case formSignUp:
		req := session.SignUpRequest{
			Email:           email,
			Password:        password,
			ConfirmPassword: f.value(fieldConfirm),
			FullName:        f.value(fieldName),
		}
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			res, err := s.SignUp(ctx, req)
			return authResultMsg{mode: mode, signUp: res, err: err}
		}
	case formReset:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			return authResultMsg{mode: mode, err: s.RequestPasswordReset(ctx, email)}
		}
	case formVerify:
		code, recovery := f.value(fieldCode), f.recovery
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			sess, err := s.VerifyCode(ctx, email, code, recovery)
			return authResultMsg{mode: mode, sess: sess, err: err}
		}
	default:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
			defer cancel()
			sess, err := s.SignIn(ctx, email, password)
			return authResultMsg{mode: mode, sess: sess, err: err}
		}
	}
}

// view renders the form box.
func (f authForm) view() string {
	t := f.theme
	var b strings.Builder
	b.WriteString(t.FormTitle.Render(f.mode.title()))
	b.WriteString("\n\n")

	if f.info != "" {
		b.WriteString(t.FormMessage.Render(f.info))
		b.WriteString("\n\n")
	}

	for _, i := range f.fields() {
		b.WriteString(t.FormLabel.Render(f.label(i)))
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n\n")
	}

	switch {
	case f.busy:
		b.WriteString(t.Muted.Render("Aguarde..."))
		b.WriteString("\n")
	case f.err != "":
		b.WriteString(t.FormError.Render(f.err))
		b.WriteString("\n")
	}

	hints := []string{"enter enviar", "esc fechar"}
	switch f.mode {
	case formLogin:
		hints = append(hints, "C-n criar conta", "C-r esqueci a senha")
	default:
		hints = append(hints, "C-l entrar")
	}
	if f.caps.VerificationCode && f.mode != formVerify {
		hints = append(hints, "C-e tenho um código")
	}
	b.WriteString(t.FormHint.Render(strings.Join(hints, " · ")))

	return t.FormBox.Render(b.String())
}
