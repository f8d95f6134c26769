package scenarios

import "strings"

// singularLabel is the document label the admin uses in messages,
// e.g. "Post" for the posts collection
func singularLabel(slug string) string {
	if slug == "" {
		return ""
	}
	l := strings.ToUpper(slug[:1]) + slug[1:]
	return strings.TrimSuffix(l, "s")
}
