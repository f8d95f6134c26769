// Package store defines the document-store client used to seed and clear
// fixtures, and an in-memory implementation of it.
//
// # Client Interface
//
// Client exposes create/find/update/delete over named collections plus
// read/update of global singletons:
//
//	doc, err := client.Create(ctx, "posts", model.Fields{"title": "t1"})
//	res, err := client.Find(ctx, "posts", model.FindOptions{Limit: 100})
//	err = client.Delete(ctx, "posts", doc.ID)
//
// Implementations live in this package (Memory), internal/store/rest (the
// admin's REST API), internal/store/postgres and internal/repository
// (SurrealDB).
//
// # Error Handling
//
// Every implementation classifies failures with the sentinels below so
// callers can use errors.Is regardless of the backend:
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // document is gone
//	}
package store
