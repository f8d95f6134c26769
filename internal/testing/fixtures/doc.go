// Package fixtures seeds and clears test documents in a document store.
//
// The Controller is the only writer of test data: scenarios create the
// documents they need before driving the UI and clear the collection in
// teardown so every scenario starts from an empty collection.
//
//	f := fixtures.New(client, fixtures.WithLogger(logger))
//	doc, err := f.CreateDocument(ctx, "posts", fixtures.PostDefaults, model.Fields{"title": "post1"})
//	docs, err := f.CreateDocuments(ctx, "posts", 11, fixtures.PostDefaults)
//	n, err := f.ClearCollection(ctx, "posts", 100)
//
// # Batches
//
// CreateDocuments and ClearCollection run their store calls concurrently
// and return only once every call has finished. Failures are joined with
// errors.Join; none are dropped.
//
// # Test Helpers
//
// The Must* variants fail the test on error:
//
//	post := f.MustCreatePost(t, model.Fields{"title": "hello"})
package fixtures
