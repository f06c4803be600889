package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/transactions"
)

// shared templates parsed into every page set.
var sharedTemplates = []string{"layout.html", "partials.html"}

// Renderer executes one template set per page so that every page can define
// its own "title" and "content" blocks.
type Renderer struct {
	pages  map[string]*template.Template
	logger *log.Logger
}

// NewRenderer parses every page under templates/ of fsys.
func NewRenderer(fsys fs.FS, logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Discard()
	}
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	rd := &Renderer{
		pages:  make(map[string]*template.Template),
		logger: logger.WithComponent(log.ComponentTemplate),
	}
	for _, file := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		if isShared(name + ".html") {
			continue
		}
		patterns := []string{file}
		for _, s := range sharedTemplates {
			patterns = append(patterns, "templates/"+s)
		}
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		rd.pages[name] = t
	}
	if len(rd.pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return rd, nil
}

func isShared(file string) bool {
	for _, s := range sharedTemplates {
		if s == file {
			return true
		}
	}
	return false
}

// Page renders a whole page, or only its "content" block for htmx requests
// that swap the main region.
func (rd *Renderer) Page(w http.ResponseWriter, r *http.Request, page string, status int, data any) {
	block := "layout"
	if isPartialRequest(r) {
		block = "content"
	}
	rd.execute(w, r, page, block, status, data)
}

// Fragment renders one named block of page, e.g. a table refreshed by htmx.
func (rd *Renderer) Fragment(w http.ResponseWriter, r *http.Request, page, block string, status int, data any) {
	rd.execute(w, r, page, block, status, data)
}

func (rd *Renderer) execute(w http.ResponseWriter, r *http.Request, page, block string, status int, data any) {
	t, ok := rd.pages[page]
	if !ok {
		rd.logger.ErrorContext(r.Context(), "Unknown template",
			"template", page,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		rd.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", page,
			"block", block,
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Has reports whether page was parsed; used by the readiness probe.
func (rd *Renderer) Has(page string) bool {
	_, ok := rd.pages[page]
	return ok
}

// isPartialRequest is true for htmx requests except boosted navigation,
// which expects a full document.
func isPartialRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Boosted") != "true"
}

type labeled interface{ Label() string }

type kv struct {
	Key   string
	Value any
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string { return core.FormatMoney(d, currency) },
	"amount": core.FormatAmount,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006, 15:04")
	},
	"label": func(v labeled) string { return v.Label() },
	"lower": func(v any) string { return strings.ToLower(fmt.Sprint(v)) },
	"direction": func(t core.Transaction, selected string) string {
		return core.Classify(t, selected).String()
	},
	"describe": transactions.Describe,
	"signed": func(t core.Transaction, selected string) string {
		amt := core.FormatMoney(t.Amount, t.Currency)
		switch core.Classify(t, selected) {
		case core.DirectionCredit:
			return "+" + amt
		case core.DirectionDebit:
			return "-" + amt
		}
		return amt
	},
	"rows": func(txns []core.Transaction, selected string) map[string]any {
		return map[string]any{"Rows": txns, "Selected": selected}
	},
	"filesize": func(n int64) string {
		switch {
		case n >= 1<<20:
			return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
		case n >= 1<<10:
			return fmt.Sprintf("%.0f KB", float64(n)/(1<<10))
		}
		return fmt.Sprintf("%d B", n)
	},
	"sorted": func(m map[string]any) []kv {
		out := make([]kv, 0, len(m))
		for k, v := range m {
			out = append(out, kv{Key: strings.ReplaceAll(k, "_", " "), Value: v})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out
	},
	"initial": func(s string) string {
		if s == "" {
			return "?"
		}
		return strings.ToUpper(s[:1])
	},
	"year": func() int { return time.Now().Year() },
}
