// Package fakeadmin is an in-process stand-in for the admin UI.
//
// A Session renders each admin page from a store.Client into HTML and
// answers selector queries against it, so scenarios written for a real
// browser run unchanged against an in-memory store. Interactive elements
// carry a data-handler attribute that Click dispatches on; inputs carry a
// data-field attribute that Fill writes to.
//
// The markup mirrors the class names and ids of the real admin closely
// enough for the scenario selectors. It is not a rendering of the real UI.
package fakeadmin
