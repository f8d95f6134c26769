// Package model defines the document data structures shared by the store
// clients, the fixture controller and the admin scenarios.
//
// # Documents
//
// A Document is a record in a named collection. Its identity is ID, unique
// within the collection. All other values live in Fields and are encoded
// flat in JSON, next to the identity and timestamps:
//
//	{"id": "6650f0", "title": "t1", "description": "d1", "createdAt": "..."}
//
// # Queries
//
// FindOptions describes a paged, sorted and filtered list query and
// FindResult carries one page of documents plus the pagination totals the
// admin list view renders ("1-10 of 11").
//
// # Error Types
//
// Field-level validation problems are described by FieldError. Server error
// bodies in RFC 9457 Problem Details form decode into ProblemDetails.
package model
