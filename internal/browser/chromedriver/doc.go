// Package chromedriver implements browser.Session on top of chromedp.
//
// Selectors are resolved inside the page by a small script, so text and
// nth steps behave the same as in the other drivers. Waits are evaluated
// by the page itself on every DOM mutation.
package chromedriver
