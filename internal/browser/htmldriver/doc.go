// Package htmldriver implements browser.Session without a browser.
//
// Pages are fetched with net/http and queried with goquery. Links are
// followed and forms submitted the way a browser with JavaScript disabled
// would, with cookies kept in a jar so a login sticks:
//
//	s, err := htmldriver.New()
//	err = s.Goto(ctx, "http://localhost:3000/admin/login")
//	err = s.Fill(ctx, browser.CSS("#field-email"), "dev@payloadcms.com")
//
// Find, FieldValue and IsVisible are exported for other goquery-backed
// sessions, such as the in-process fake admin.
package htmldriver
