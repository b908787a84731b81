// Package ui is the cabinet operator menu, built on Bubble Tea.
//
// Core abstractions:
//   - View: a screen or region with its own model, update and view (Elm-style)
//   - Page: a View opened from the menu; Close releases its subscriptions
//   - Panel / Layout: the menu and page panels drawn side by side
//   - FocusManager: rotates focus across panels and form fields
//   - ViewStack: the steps of the setup wizard
//   - Overlay: confirmations, diagnostics, event log and help over the layout
//
// Hardware events reach pages only as eventbus.EventMsg values delivered by
// the page's own bridge.
package ui
