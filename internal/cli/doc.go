// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the command line and runs fipepro's commands.
//
// With no command the interactive interface starts. Every other command
// is a one-shot operation over the same services the interface uses:
//
//	cmd, args := cli.Parse(os.Args[1:])
//	os.Exit(cli.Run(cmd, args))
//
// # Commands
//
//   - brands, models, years: list selectable items
//   - price, code, references, trend: price lookups
//   - history, favorites: saved lookups
//   - login, logout, signup, reset, whoami: account
//   - insight: AI commentary for a vehicle
//   - serve: local JSON API
//   - config, version, help
//
// All commands accept --json, which prints a JSONResponse envelope.
package cli
