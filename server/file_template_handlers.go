package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	contentTypeHTML = "text/html; charset=utf-8"
	layoutTemplate  = "layout.html"
)

// Pages rendered inside the shared layout
const (
	pageLogin      = "login.html"
	pageRegister   = "register.html"
	pageProfile    = "profile.html"
	pageItems      = "items.html"
	pageAdminUsers = "admin_users.html"
	pagePending    = "pending.html"
)

var allPages = []string{pageLogin, pageRegister, pageProfile, pageItems, pageAdminUsers, pagePending}

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParsePage parses a page together with the shared layout
func ParsePage(name string) (*template.Template, error) {
	return template.New(layoutTemplate).ParseFS(TemplateFilesFS(), layoutTemplate, name)
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(allPages))
	for _, name := range allPages {
		tmpl, err := ParsePage(name)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// PageData is the model every page template receives
type PageData struct {
	AppName    string
	LoginRoute string
	Title      string
	Identity   *users.Identity // nil when nobody is logged in
	Error      string
	Message    string
	Username   string // refills the login and register forms after an error
	Register   RegisterFormData
	APIProxy   bool // pages may load data from /api/*
}

type RegisterFormData struct {
	Name      string
	Surname   string
	BirthDate string
	Email     string
}

func (s *Server) newPageData(r *http.Request, title string) PageData {
	return PageData{
		AppName:    s.config.GetAppName(),
		LoginRoute: s.guard.LoginRoute(),
		Title:      title,
		Identity:   s.session.CurrentIdentity(),
		Error:      r.URL.Query().Get("error"),
		Message:    r.URL.Query().Get("message"),
		APIProxy:   s.apiProxy != nil,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, name string, status int, data PageData) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Error().Str("page", name).Msg("Unknown page template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("page", name).Msg("Failed to render template")
	}
}
