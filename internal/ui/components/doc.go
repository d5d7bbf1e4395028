// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the reusable widgets of the fipepro TUI.

# Components

SelectList (list.go) - Filterable single-choice list used for categories,
brands, models and years.

ToastManager (toast.go) - Non-blocking notifications that auto-dismiss from
the bottom-right corner.

StatusBar (statusbar.go) - Bottom bar with the current stage, the signed-in
user and keyboard shortcuts.

Spinner (spinner.go) - Loading indicator with elapsed time.

All components take a *styles.Theme and render with Lip Gloss.
*/
package components
