// Package repository implements store.Client on SurrealDB.
//
// Each collection is a SurrealDB table and each document a record in it,
// keyed by the document id. Globals live in the "globals" table keyed by
// slug.
//
// # Query Patterns
//
//   - Parameterized queries with $variable syntax
//   - type::thing($collection, $id) for safe record addressing
//   - time::now() for automatic timestamps
//
// # Example Usage
//
//	repo := repository.NewDocumentRepository(db)
//	doc, err := repo.Create(ctx, "posts", model.Fields{"title": "title"})
//	if err != nil {
//	    return err
//	}
//	_, err = repo.FindByID(ctx, "posts", doc.ID)
//	if errors.Is(err, store.ErrNotFound) {
//	    // Handle not found
//	}
package repository
