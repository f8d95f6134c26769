// Package browser defines the browser session the scenarios drive, the
// selector chains used to address elements, and the conditions sessions
// wait for.
//
// # Selectors
//
// A Selector is a chain of steps in Playwright's selector syntax. Each step
// is evaluated inside the matches of the previous one:
//
//	rows := browser.CSS("table").CSS("tbody").CSS("tr")  // "table >> tbody >> tr"
//	first := rows.First().CSS("td").First()              // "... >> nth=0 >> td >> nth=0"
//	id := browser.CSS(".column-selector").Text("ID")     // ".column-selector >> text=ID"
//
// Parse reads the same syntax back.
//
// # Waiting
//
// Await blocks until the condition holds for the selector or ctx ends:
//
//	obs, err := session.Await(ctx, rows, browser.Count(10))
//
// Drivers live in subpackages: chromedriver (chromedp), pwdriver
// (playwright-go) and htmldriver (net/http and goquery, no JavaScript).
package browser
