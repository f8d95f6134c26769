// Package pwdriver implements browser.Session on top of playwright-go.
//
// Selectors are handed to Playwright as is; their string form is
// Playwright's chained selector syntax. Waits use Playwright's
// auto-retrying locator assertions, bounded by the caller's deadline or
// Options.Timeout.
package pwdriver
