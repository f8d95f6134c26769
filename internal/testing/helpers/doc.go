// Package helpers provides test assertions over a store.Client.
//
//	doc := helpers.AssertDocumentExists(t, client, "posts", id)
//	helpers.AssertFields(t, doc, model.Fields{"title": "updated"})
//	helpers.AssertDocumentNotExists(t, client, "posts", deletedID)
//	helpers.AssertCollectionCount(t, client, "posts", 0)
//
// Field mismatches are reported as go-cmp diffs.
package helpers
