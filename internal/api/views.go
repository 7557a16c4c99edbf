package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/quire/internal/noteservice"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/app.js
var appScript []byte

// views renders the HTML pages. Note content is user HTML and goes through
// the sanitizer before it reaches a template.
type views struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

func newViews() *views {
	return &views{
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
		policy: bluemonday.UGCPolicy(),
	}
}

// formPage is the data of the single-password forms: initialization and
// login.
type formPage struct {
	Title       string
	Heading     string
	Action      string
	Placeholder string
	Button      string
	Error       string
}

func initPage(errMsg string) formPage {
	return formPage{
		Title:       "Set up",
		Heading:     "Set up",
		Action:      "/?init=1",
		Placeholder: "Choose a password",
		Button:      "Initialize",
		Error:       errMsg,
	}
}

func loginPage(errMsg string) formPage {
	return formPage{
		Title:       "Sign in",
		Heading:     "Sign in",
		Action:      "/login",
		Placeholder: "Password",
		Button:      "Sign in",
		Error:       errMsg,
	}
}

type noteView struct {
	ID      string
	Time    int64
	Stamp   string
	Deleted bool
	Content template.HTML
	// Source is the same sanitized markup as a plain string, for the edit
	// button's data attribute.
	Source string
}

type pageLink struct {
	N      int
	Href   string
	Active bool
}

// notesPage is the data of the listing page.
type notesPage struct {
	Title      string
	Trash      bool
	Notes      []noteView
	TrashCount int
	Pages      []pageLink
}

func (v *views) notesPage(p *noteservice.Page, trash bool, trashCount int) notesPage {
	data := notesPage{
		Title:      "Notes",
		Trash:      trash,
		Notes:      make([]noteView, 0, len(p.Notes)),
		TrashCount: trashCount,
	}
	if trash {
		data.Title = "Trash"
	}
	for _, n := range p.Notes {
		clean := v.policy.Sanitize(n.Content)
		data.Notes = append(data.Notes, noteView{
			ID:      n.ID,
			Time:    n.Time,
			Stamp:   time.Unix(n.Time, 0).UTC().Format("2006-01-02 15:04:05"),
			Deleted: n.Deleted,
			Content: template.HTML(clean),
			Source:  clean,
		})
	}
	if p.Total > p.PageSize {
		for i := 1; i <= p.Pages; i++ {
			href := "/?page=" + strconv.Itoa(i)
			if trash {
				href = "/?trash=1&page=" + strconv.Itoa(i)
			}
			data.Pages = append(data.Pages, pageLink{N: i, Href: href, Active: i == p.Page})
		}
	}
	return data
}

// render executes the named template into a buffer so that a failing
// template still produces a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.views.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("render failed", slog.String("template", name), slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Script handles GET /static/app.js.
func (h *Handler) Script(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(appScript)
}
