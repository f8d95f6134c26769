// Package harness runs UI scenarios against a browser session.
//
// A run is a tree of named scenarios. Each scenario gets a *Context that
// satisfies testify's require.TestingT, so scenarios use require and assert
// directly. Expectations wait for the page to reach a state and report the
// last observed state when it never does.
//
// Setup failures abort the run: every scenario after the failure is
// reported as skipped with the abort reason.
package harness
