// Package rest implements store.Client over the admin's REST API.
//
// Collections are served under /api/<slug>, globals under
// /api/globals/<slug>. Authenticated requests carry the token returned by
// the login endpoint:
//
//	c, err := rest.New("http://localhost:3000", rest.WithLogger(logger))
//	err = c.Login(ctx, "users", "dev@payloadcms.com", "test")
//	doc, err := c.Create(ctx, "posts", model.Fields{"title": "title"})
//
// HTTP statuses map onto the store sentinels: 404 is store.ErrNotFound,
// 400 is a *store.ValidationError, 401/403 are store.ErrUnauthorized, 5xx is
// store.ErrServer and transport failures are store.ErrConnection.
package rest
