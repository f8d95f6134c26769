package fakeadmin

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type column struct {
	Key    string
	Label  string
	Hidden bool
}

type cell struct {
	Key  string
	Text string
	Href string
}

type row struct {
	Index int
	Cells []cell
}

type operatorOption struct {
	Value string
	Label string
}

type conditionView struct {
	Index         int
	FieldLabel    string
	OperatorLabel string
	Open          bool
	Value         string
}

type fieldView struct {
	Name  string
	Label string
	Value string
}

type toastView struct {
	Kind string
	Text string
}

type navLink struct {
	ID    string
	Href  string
	Label string
}

// view is everything a page template reads
type view struct {
	Page  string
	Title string

	Nav    []navLink
	Crumbs []navLink
	Crumb  string
	Toasts []toastView

	// dashboard
	Cards []navLink

	// list
	Columns     []column
	Visible     []column
	Rows        []row
	PageInfo    string
	PerPage     int
	Pages       []int
	CurrentPage int
	Search      string
	ColumnsOpen bool
	WhereOpen   bool
	Conditions  []conditionView
	Operators   []operatorOption

	// edit, create and global
	DocID      string
	Creating   bool
	Fields     []fieldView
	Confirming bool

	// login
	Email    string
	Password string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
{{if .Nav}}<aside class="nav">
{{range .Nav}}<a id="{{.ID}}" class="nav__link" href="{{.Href}}">{{.Label}}</a>
{{end}}</aside>{{end}}
{{if .Crumbs}}<nav class="step-nav">
{{range .Crumbs}}<a href="{{.Href}}">{{.Label}}</a>
{{end}}<span>{{.Crumb}}</span>
</nav>{{end}}
<main class="{{.Page}}">
{{- if eq .Page "login"}}
<form class="login__form">
<input id="field-email" data-field="email" type="email" name="email" value="{{.Email}}">
<input id="field-password" data-field="password" type="password" name="password" value="{{.Password}}">
<button type="submit" class="form-submit" data-handler="login">Login</button>
</form>
{{- else if eq .Page "dashboard"}}
<ul class="dashboard__card-list">
{{range .Cards}}<li><a id="{{.ID}}" class="card" href="{{.Href}}"><h3 class="card__title">{{.Label}}</h3></a></li>
{{end}}</ul>
{{- else if eq .Page "list"}}
<div class="list-controls">
<div class="search-filter"><input class="search-filter__input" data-field="search" placeholder="Search by ID" value="{{.Search}}"></div>
<button type="button" class="list-controls__toggle-columns" data-handler="toggle-columns">Columns</button>
<button type="button" class="list-controls__toggle-where" data-handler="toggle-where">Filters</button>
{{if .ColumnsOpen}}<div class="column-selector">
{{range .Columns}}<button type="button" class="column-selector__column{{if not .Hidden}} column-selector__column--active{{end}}" data-handler="toggle-column:{{.Key}}">{{.Label}}</button>
{{end}}</div>{{end}}
{{if .WhereOpen}}<div class="where-builder">
{{if .Conditions}}<ul class="where-builder__or-filters">
{{range .Conditions}}<li class="condition">
<div class="condition__field">{{.FieldLabel}}</div>
<div class="condition__operator" data-handler="open-operator:{{.Index}}">
<div class="rs__single-value">{{.OperatorLabel}}</div>
{{if .Open}}<div class="rs__menu">{{$i := .Index}}{{range $.Operators}}<div class="rs__option" data-handler="choose-operator:{{$i}}:{{.Value}}"><span>{{.Label}}</span></div>{{end}}</div>{{end}}
</div>
<div class="condition__value"><input data-field="where-value:{{.Index}}" value="{{.Value}}"></div>
<div class="condition__actions"><button type="button" class="condition__actions-remove" data-handler="remove-condition:{{.Index}}">Remove</button></div>
</li>
{{end}}</ul>
{{else}}<div class="where-builder__no-filters">No filters set</div>
<button type="button" class="where-builder__add-first-filter" data-handler="add-filter">Add filter</button>
{{end}}</div>{{end}}
</div>
{{if .Rows}}<table>
<thead><tr>
{{range .Visible}}<th id="heading-{{.Key}}"><span>{{.Label}}</span><span class="sort-column"><button type="button" class="sort-column__asc" data-handler="sort:{{.Key}}">&#9650;</button><button type="button" class="sort-column__desc" data-handler="sort:-{{.Key}}">&#9660;</button></span></th>
{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr class="row-{{.Index}}">{{range .Cells}}<td class="cell-{{.Key}}">{{if .Href}}<a href="{{.Href}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{end}}</tbody>
</table>{{else}}<div class="collection-list__no-results">No results.</div>{{end}}
<div class="collection-list__page-controls">
<div class="paginator">{{$cur := .CurrentPage}}{{range .Pages}}<button type="button" class="paginator__page{{if eq . $cur}} paginator__page--is-current{{end}}" data-handler="page:{{.}}">{{.}}</button>{{end}}</div>
<div class="collection-list__page-info">{{.PageInfo}}</div>
<div class="per-page"><button type="button" class="per-page__base-button">Per Page: {{.PerPage}}</button></div>
</div>
{{- else if or (eq .Page "edit") (eq .Page "global")}}
<form class="collection-edit">
{{range .Fields}}<div class="field-type text"><label for="field-{{.Name}}">{{.Label}}</label><input id="field-{{.Name}}" data-field="{{.Name}}" name="{{.Name}}" value="{{.Value}}"></div>
{{end}}<div class="collection-edit__controls">
<button type="button" id="action-save" data-handler="save">Save</button>
{{if and (eq .Page "edit") (not .Creating)}}<button type="button" id="action-delete" data-handler="delete">Delete</button>{{end}}
</div>
</form>
{{if .Confirming}}<div class="delete-document__template">
<h1>Confirm deletion</h1>
<p>You are about to delete the document "{{.DocID}}". Are you sure?</p>
<button type="button" id="confirm-cancel" data-handler="cancel-delete">Cancel</button>
<button type="button" id="confirm-delete" data-handler="confirm-delete">Confirm</button>
</div>{{end}}
{{- else}}
<h1 class="not-found">Nothing found</h1>
{{- end}}
</main>
<div class="Toastify">
{{range .Toasts}}<div class="Toastify__toast Toastify__toast--{{.Kind}}" role="alert"><div class="Toastify__toast-body">{{.Text}}</div></div>
{{end}}</div>
</body>
</html>
`))

// render executes the page template and parses the result for queries
func render(v *view) (*goquery.Document, string, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, v); err != nil {
		return nil, "", fmt.Errorf("fakeadmin: render %s: %w", v.Page, err)
	}
	html := buf.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("fakeadmin: parse %s: %w", v.Page, err)
	}
	return doc, html, nil
}
