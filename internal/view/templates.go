package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.CurrentUser
	Data        any
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(v any) string {
	switch n := v.(type) {
	case decimal.Decimal:
		return moneyPrinter.Sprintf("%.2f", n.Round(2).InexactFloat64())
	case *decimal.Decimal:
		if n == nil {
			return ""
		}
		return moneyPrinter.Sprintf("%.2f", n.Round(2).InexactFloat64())
	case float64:
		return moneyPrinter.Sprintf("%.2f", n)
	case int64:
		return moneyPrinter.Sprintf("%d", n)
	case int:
		return moneyPrinter.Sprintf("%d", n)
	}
	return fmt.Sprint(v)
}

// FuncMap exposes the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"inputDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"formatMoney": FormatMoney,
		"formatNumber": func(d decimal.Decimal) string {
			return d.StringFixedBank(2)
		},
		"formatBytes": func(n int64) string {
			switch {
			case n >= 1<<20:
				return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
			case n >= 1<<10:
				return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
			}
			return fmt.Sprintf("%d B", n)
		},
		"statusClass": func(status any) string {
			return "status-" + strings.ToLower(fmt.Sprint(status))
		},
		"title": func(s any) string {
			str := fmt.Sprint(s)
			if str == "" {
				return ""
			}
			return strings.ToUpper(str[:1]) + str[1:]
		},
		"can": func(user *shared.CurrentUser, perm string) bool {
			return user.Can(perm)
		},
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
		"add": func(a, b int) int { return a + b },
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"dict": func(pairs ...any) map[string]any {
			out := make(map[string]any, len(pairs)/2)
			for i := 0; i+1 < len(pairs); i += 2 {
				out[fmt.Sprint(pairs[i])] = pairs[i+1]
			}
			return out
		},
	}
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	return NewEngineFS(web.Templates)
}

// NewEngineFS parses every .html file below templates/ in fsys. Each file
// declares its own name with a define block.
func NewEngineFS(fsys fs.FS) (*Engine, error) {
	tpl := template.New("root").Funcs(FuncMap())
	err := fs.WalkDir(fsys, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		raw, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		if _, err := tpl.New(path).Parse(string(raw)); err != nil {
			return fmt.Errorf("view: parse %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData. Output is buffered so a
// template error never leaves a half written page.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus is Render with an explicit status code.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderString executes a template into a string, used for PDF documents.
func (e *Engine) RenderString(name string, data any) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
