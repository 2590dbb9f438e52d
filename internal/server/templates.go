package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"

	"github.com/teemow/bookshelf/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	indexTmpl    = parseTemplate("index.html")
	bookTmpl     = parseTemplate("book.html")
	createTmpl   = parseTemplate("create.html")
	editTmpl     = parseTemplate("edit.html")
	redirectTmpl = parseTemplate("redirect.html")
	notFoundTmpl = parseTemplate("notfound.html")
	errorTmpl    = parseTemplate("error.html")
)

// parseTemplate pairs the shared layout with a page that defines "body".
func parseTemplate(filename string) *appTemplate {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html"))
	b, err := fs.ReadFile(templateFS, path.Join("templates", filename))
	if err != nil {
		panic(fmt.Errorf("could not read template: %w", err))
	}
	template.Must(tmpl.New("body").Parse(string(b)))
	return &appTemplate{t: tmpl.Lookup("base.html")}
}

type appTemplate struct {
	t *template.Template
}

// page is the value every template is executed with.
type page struct {
	User    *catalog.User
	Flashes []string
	Data    interface{}
}

// formView backs the create and edit forms.
type formView struct {
	Book    *catalog.Book
	Form    catalog.BookForm
	Message string
}

// Execute renders into a buffer first so a failing template never leaves a
// half-written response behind.
func (tmpl *appTemplate) Execute(w http.ResponseWriter, status int, p page) error {
	var buf bytes.Buffer
	if err := tmpl.t.Execute(&buf, p); err != nil {
		return fmt.Errorf("could not write template: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
