// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the bindings of the main screen. Lists consume printable
// keys for filtering, so letter shortcuts only apply to the result and
// sidebar panes.
type KeyMap struct {
	NextPane key.Binding
	PrevPane key.Binding
	Back     key.Binding
	Quit     key.Binding
	QuitPane key.Binding
	Account  key.Binding

	Favorite  key.Binding
	CopyCode  key.Binding
	CopyPrice key.Binding
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	Clear     key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "próximo"),
		),
		PrevPane: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "anterior"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "voltar à busca"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-q", "sair"),
		),
		QuitPane: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "sair"),
		),
		Account: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "entrar/sair"),
		),
		Favorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "favoritar"),
		),
		CopyCode: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copiar código"),
		),
		CopyPrice: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "copiar preço"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "subir"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "descer"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "abrir"),
		),
		Clear: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "limpar histórico"),
		),
	}
}

// FormKeyMap defines the bindings of the account form.
type FormKeyMap struct {
	Next      key.Binding
	Prev      key.Binding
	Submit    key.Binding
	Close     key.Binding
	Login     key.Binding
	SignUp    key.Binding
	Reset     key.Binding
	EnterCode key.Binding
}

// DefaultFormKeyMap returns the default form bindings.
func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		Next:      key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "próximo campo")),
		Prev:      key.NewBinding(key.WithKeys("shift+tab", "up")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "enviar")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "fechar")),
		Login:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("C-l", "entrar")),
		SignUp:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("C-n", "criar conta")),
		Reset:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "esqueci a senha")),
		EnterCode: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("C-e", "tenho um código")),
	}
}
