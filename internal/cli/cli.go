// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is a top-level CLI command.
type Command int

const (
	CmdTUI Command = iota
	CmdBrands
	CmdModels
	CmdYears
	CmdPrice
	CmdCode
	CmdReferences
	CmdTrend
	CmdHistory
	CmdFavorites
	CmdLogin
	CmdLogout
	CmdSignUp
	CmdReset
	CmdWhoami
	CmdInsight
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// commandNames maps every accepted command word, aliases included.
var commandNames = map[string]Command{
	"tui":        CmdTUI,
	"brands":     CmdBrands,
	"marcas":     CmdBrands,
	"models":     CmdModels,
	"modelos":    CmdModels,
	"years":      CmdYears,
	"anos":       CmdYears,
	"price":      CmdPrice,
	"preco":      CmdPrice,
	"code":       CmdCode,
	"references": CmdReferences,
	"trend":      CmdTrend,
	"history":    CmdHistory,
	"favorites":  CmdFavorites,
	"favs":       CmdFavorites,
	"login":      CmdLogin,
	"logout":     CmdLogout,
	"signup":     CmdSignUp,
	"reset":      CmdReset,
	"whoami":     CmdWhoami,
	"insight":    CmdInsight,
	"serve":      CmdServe,
	"config":     CmdConfig,
	"version":    CmdVersion,
	"help":       CmdHelp,
}

// Args holds the parsed command line.
type Args struct {
	// Global flags
	JSON       bool
	Verbose    bool
	ConfigPath string

	// Name is the command word as typed.
	Name string

	// Raw are the arguments after the command word.
	Raw []string
}

const usageText = `fipepro - Tabela FIPE PRO

Consulta de preços médios de veículos da Tabela FIPE, no terminal.

Usage:
  fipepro [flags] [command]

Commands:
  tui                                      Interface interativa (padrão)
  brands <categoria> [--search texto]      Lista marcas
  models <categoria> <marca> [--search t]  Lista modelos de uma marca
  years <categoria> <marca> <modelo>       Lista anos de um modelo
  price <categoria> <marca> <modelo> <ano> Consulta o preço (registra no histórico)
  code <categoria> <codigoFipe> <ano> [--reference N]
                                           Consulta direta pelo código FIPE
  references                               Lista meses de referência
  trend <categoria> <codigoFipe> <ano> [--points N]
                                           Preço nos meses anteriores
  history [list|clear] [--yes]             Consultas recentes
  favorites [list|toggle <categoria> <codigoFipe> <ano>]
                                           Favoritos da conta
  login | logout | signup | reset | whoami Conta
  insight <categoria> <codigoFipe> <ano> [--location texto]
                                           Análise do especialista (IA)
  serve [--addr host:porta]                API JSON local
  config [show|get <chave>|set <chave> <valor>|path|keys]
  version                                  Versão
  help                                     Esta ajuda

Categories: car (carros), motorcycle (motos), truck (caminhoes)

Global flags:
  --json             Saída JSON
  -v, --verbose      Log detalhado no stderr
  --config <path>    Arquivo de configuração alternativo

Examples:
  fipepro brands car --search fia
  fipepro price car 21 4828 2015-1
  fipepro code car 001004-9 2015-1 --json
  fipepro config set flow.order year-first

Version: %s
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer, jsonMode bool) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if jsonMode {
		return NewJSONResponse("version", data).Write(w)
	}
	fmt.Fprintf(w, "fipepro version %s\n", data.Version)
	fmt.Fprintf(w, "  Git commit: %s\n", data.GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", data.BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", data.GoVersion)
	return nil
}

// Parse splits argv (without the program name) into the command and its
// arguments. No command means the TUI.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch args.Name {
	case "-h", "--help":
		return CmdHelp, args
	case "--version":
		return CmdVersion, args
	}
	if cmd, ok := commandNames[args.Name]; ok {
		return cmd, args
	}
	return CmdUnknown, args
}

// parseGlobalFlags extracts the global flags wherever they appear.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd and returns the process exit code.
func Run(cmd Command, args Args) int {
	out := os.Stdout
	switch cmd {
	case CmdHelp:
		PrintUsage(out)
		return ExitSuccess
	case CmdVersion:
		if err := PrintVersion(out, args.JSON); err != nil {
			return ExitGeneralError
		}
		return ExitSuccess
	case CmdUnknown:
		err := NewUsageError("command", args.Name, "is not a fipepro command")
		if s := SuggestCommand(args.Name); s != "" {
			err = &UsageError{Field: "command", Value: args.Name, Reason: "is not a fipepro command", Example: "fipepro " + s}
		}
		DisplayError(os.Stderr, args.Name, err, args.JSON)
		return GetExitCode(err)
	}

	env, err := NewEnv(args, out)
	if err != nil {
		DisplayError(os.Stderr, args.Name, err, args.JSON)
		return GetExitCode(err)
	}
	defer env.Close()

	err = dispatch(env, cmd)
	if err != nil {
		env.Logger.Error("command failed", "command", args.Name, "error", err)
		w := io.Writer(os.Stderr)
		if args.JSON {
			w = out
		}
		DisplayError(w, args.Name, err, args.JSON)
	}
	return GetExitCode(err)
}

func dispatch(env *Env, cmd Command) error {
	switch cmd {
	case CmdTUI:
		return runTUI(env)
	case CmdBrands:
		return runBrands(env)
	case CmdModels:
		return runModels(env)
	case CmdYears:
		return runYears(env)
	case CmdPrice:
		return runPrice(env)
	case CmdCode:
		return runCode(env)
	case CmdReferences:
		return runReferences(env)
	case CmdTrend:
		return runTrend(env)
	case CmdHistory:
		return runHistory(env)
	case CmdFavorites:
		return runFavorites(env)
	case CmdLogin:
		return runLogin(env)
	case CmdLogout:
		return runLogout(env)
	case CmdSignUp:
		return runSignUp(env)
	case CmdReset:
		return runReset(env)
	case CmdWhoami:
		return runWhoami(env)
	case CmdInsight:
		return runInsight(env)
	case CmdServe:
		return runServe(env)
	case CmdConfig:
		return runConfig(env)
	default:
		return NewUsageError("command", env.Args.Name, "is not a fipepro command")
	}
}
