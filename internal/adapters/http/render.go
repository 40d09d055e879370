package web

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"activityboard/internal/application/board"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown converts md to HTML, falling back to escaped text.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

type renderer struct {
	board    *template.Template
	markdown bool
}

func newRenderer(markdown bool) *renderer {
	funcs := template.FuncMap{"markdown": renderMarkdown}
	return &renderer{
		board:    template.Must(template.New("board.html").Funcs(funcs).ParseFS(templateFS, "templates/board.html")),
		markdown: markdown,
	}
}

// boardPage is the data the board template renders. Every user-supplied
// string in Doc is escaped by html/template.
type boardPage struct {
	Doc            board.Document
	CSRFField      template.HTML
	HideAfterMs    int64
	Markdown       bool
	NoParticipants string
}

// renderBoard writes the board page for doc.
func (rd *renderer) renderBoard(w http.ResponseWriter, r *http.Request, doc board.Document, now time.Time) {
	page := boardPage{
		Doc:            doc,
		CSRFField:      csrf.TemplateField(r),
		HideAfterMs:    doc.Message.Remaining(now).Milliseconds(),
		Markdown:       rd.markdown,
		NoParticipants: board.NoParticipants,
	}

	var buf bytes.Buffer
	if err := rd.board.Execute(&buf, page); err != nil {
		internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("write_failed", "error", err)
	}
}
