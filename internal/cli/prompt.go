// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrPromptAborted is returned when the user cancels a prompt.
var ErrPromptAborted = errors.New("cancelado")

// =============================================================================
// PROMPTER
// =============================================================================

// Prompter reads answers from the terminal with line editing, or from a
// plain reader when stdin is not a terminal.
type Prompter struct {
	line   *liner.State
	reader *bufio.Reader
	out    io.Writer
}

// NewPrompter creates a prompter on stdin. Close must be called to restore
// the terminal.
func NewPrompter() *Prompter {
	if !IsTTY() {
		return &Prompter{reader: bufio.NewReader(os.Stdin), out: os.Stderr}
	}
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &Prompter{line: line, out: os.Stderr}
}

// newReaderPrompter reads answers from r. Used by tests.
func newReaderPrompter(r io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(r), out: out}
}

// Close restores the terminal.
func (p *Prompter) Close() {
	if p.line != nil {
		p.line.Close()
	}
}

// Ask prompts for a line. An empty answer yields def.
func (p *Prompter) Ask(label, def string) (string, error) {
	prompt := label + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", label, def)
	}

	var answer string
	var err error
	if p.line != nil {
		answer, err = p.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrPromptAborted
		}
	} else {
		fmt.Fprint(p.out, prompt)
		answer, err = p.reader.ReadString('\n')
		if errors.Is(err, io.EOF) && answer != "" {
			err = nil
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrPromptAborted
		}
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Password prompts for a secret without echo.
func (p *Prompter) Password(label string) (string, error) {
	if p.line == nil {
		s, err := p.Ask(label, "")
		return s, err
	}
	fmt.Fprint(p.out, label+": ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Confirm asks a yes/no question, defaulting to no.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.Ask(question+" (s/N)", "")
	if err != nil {
		return false, err
	}
	if answer == "" {
		return false, nil
	}
	yes, err := ParseBoolString(answer)
	if err != nil {
		return false, nil
	}
	return yes, nil
}
