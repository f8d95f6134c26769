// Package scenarios is the admin end-to-end suite: navigation, document
// CRUD, the global singleton and the list view controls.
//
// Every scenario starts from an empty collection. Documents are seeded
// through the fixture controller before the page under test is loaded, and
// the collection is drained after each scenario.
package scenarios
