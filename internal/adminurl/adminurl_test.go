package adminurl

import (
	"testing"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	b, err := New("http://localhost:3000/", "posts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"admin", b.Admin(), "http://localhost:3000/admin"},
		{"login", b.Login(), "http://localhost:3000/admin/login"},
		{"list", b.List(), "http://localhost:3000/admin/collections/posts"},
		{"list page", b.ListPage(2), "http://localhost:3000/admin/collections/posts?page=2"},
		{"create", b.Create(), "http://localhost:3000/admin/collections/posts/create"},
		{"edit", b.Edit("abc"), "http://localhost:3000/admin/collections/posts/abc"},
		{"global", b.Global("global"), "http://localhost:3000/admin/globals/global"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, tt.got)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := New("localhost:3000", "posts"); err == nil {
		t.Error("expected error for url without scheme")
	}
	if _, err := New("http://localhost:3000", ""); err == nil {
		t.Error("expected error for empty slug")
	}
}

func TestPagePath(t *testing.T) {
	t.Parallel()

	if got := PagePath("http://localhost:3000/admin/collections/posts?page=2"); got != "/admin/collections/posts?page=2" {
		t.Errorf("unexpected page path %s", got)
	}
	if got := PagePath("/admin"); got != "/admin" {
		t.Errorf("unexpected page path %s", got)
	}
}
