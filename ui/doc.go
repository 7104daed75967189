// Package ui is the terminal front end of the explorer. It renders the
// navigation, category, product and history pages from cache snapshots,
// records a page view whenever a page's data arrives, and binds the refresh
// coordinators to a key so the visitor can ask for fresher catalog data.
//
// The model follows the bubbletea Elm loop: cache subscriptions and refresh
// mutations run inside tea.Cmds and come back to Update as messages, so all
// page state is owned by the single Update goroutine.
package ui
