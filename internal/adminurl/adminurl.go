// Package adminurl builds the admin UI URLs for one collection.
package adminurl

import (
	"fmt"
	"net/url"
	"strings"
)

// Builder renders admin URLs relative to a server base URL
type Builder struct {
	server string
	slug   string
}

// New creates a builder for the collection slug on the admin served at
// serverURL
func New(serverURL, slug string) (*Builder, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", serverURL)
	}
	if slug == "" {
		return nil, fmt.Errorf("collection slug is required")
	}
	return &Builder{server: strings.TrimRight(serverURL, "/"), slug: slug}, nil
}

// Slug returns the collection slug
func (b *Builder) Slug() string {
	return b.slug
}

// Server returns the server base URL
func (b *Builder) Server() string {
	return b.server
}

// Admin is the dashboard, /admin
func (b *Builder) Admin() string {
	return b.server + "/admin"
}

// Login is the admin sign-in form
func (b *Builder) Login() string {
	return b.Admin() + "/login"
}

// List is the collection list view, /admin/collections/<slug>
func (b *Builder) List() string {
	return b.Admin() + "/collections/" + url.PathEscape(b.slug)
}

// ListPage is the list view on page n
func (b *Builder) ListPage(n int) string {
	return fmt.Sprintf("%s?page=%d", b.List(), n)
}

// Create is the create view for a new document
func (b *Builder) Create() string {
	return b.List() + "/create"
}

// Edit is the edit view of document id
func (b *Builder) Edit(id string) string {
	return b.List() + "/" + url.PathEscape(id)
}

// Global is the edit view of the global slug
func (b *Builder) Global(slug string) string {
	return b.Admin() + "/globals/" + url.PathEscape(slug)
}

// PagePath strips the server from an admin URL, leaving path and query
func PagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
