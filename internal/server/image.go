package server

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/snframes/internal/territory"
)

// Frame images are square per the frame descriptor's aspect ratio.
const (
	imageSize      = 1200
	titleLineWidth = 30
	titleMaxLines  = 3
)

// handleImage rasterizes one frame view as SVG. It is stateless: everything
// is recomputed from the query parameters through the shared feed cache, so
// the Farcaster host can re-request the image independently of the frame
// transition that referenced it.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = "feed"
	}

	var svg string
	switch mode {
	case "select":
		svg = s.renderSelectImage(territory.Normalize(q.Get("selected")))
	case "empty":
		svg = s.renderEmptyImage(s.registry.Resolve(q.Get("territory")))
	default:
		terr := s.registry.Resolve(q.Get("territory"))
		index, _ := strconv.Atoi(q.Get("index"))
		svg = s.renderFeedImage(r, terr, index)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=60")
	_, _ = w.Write([]byte(svg))
}

func (s *Server) renderFeedImage(r *http.Request, terr string, index int) string {
	current, err := s.cache.GetOrFetch(r.Context(), terr)
	if err != nil {
		s.logger.Error("image feed unavailable", "territory", terr, "error", err)
		return s.renderEmptyImage(terr)
	}
	if len(current.Items) == 0 {
		return s.renderEmptyImage(terr)
	}

	if index > len(current.Items)-1 {
		index = len(current.Items) - 1
	}
	if index < 0 {
		index = 0
	}
	item := current.Items[index]

	var b strings.Builder
	svgOpen(&b)
	text(&b, 72, 130, 48, "#f9fafb", "600", terr)
	text(&b, imageSize-260, 130, 36, "#9ca3af", "400", fmt.Sprintf("%d/%d", index+1, len(current.Items)))

	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	y := 330
	for _, line := range wrapLines(title, titleLineWidth, titleMaxLines) {
		text(&b, 72, y, 60, "#f9fafb", "700", line)
		y += 78
	}

	var meta []string
	if item.Author != "" {
		meta = append(meta, item.Author)
	}
	if item.Points > 0 {
		meta = append(meta, fmt.Sprintf("%d sats", item.Points))
	}
	if ago := timeAgo(item.Published); ago != "" {
		meta = append(meta, ago)
	}
	if len(meta) > 0 {
		text(&b, 72, y+40, 36, "#d1d5db", "400", strings.Join(meta, " • "))
	}

	text(&b, 72, imageSize-90, 32, "#9ca3af", "400", "stacker.news/"+territory.Label(terr))
	svgClose(&b)
	return b.String()
}

func (s *Server) renderEmptyImage(terr string) string {
	var b strings.Builder
	svgOpen(&b)
	text(&b, 72, 130, 48, "#f9fafb", "600", terr)
	text(&b, 72, 330, 54, "#f9fafb", "500", "No recent posts in "+terr+".")
	text(&b, 72, imageSize-90, 36, "#9ca3af", "400", "Try another territory")
	svgClose(&b)
	return b.String()
}

func (s *Server) renderSelectImage(selected string) string {
	var b strings.Builder
	svgOpen(&b)
	text(&b, 72, 130, 48, "#f9fafb", "600", "Pick a territory")

	y := 290
	for _, option := range s.registry.Allowed() {
		text(&b, 72, y, 40, "#f9fafb", "400", "• "+option)
		y += 70
	}

	footer := "You can also type another territory below."
	if selected != "" {
		footer = "Ready: showing " + selected
	}
	text(&b, 72, imageSize-90, 32, "#9ca3af", "400", footer)
	svgClose(&b)
	return b.String()
}

func svgOpen(b *strings.Builder) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, imageSize, imageSize, imageSize, imageSize)
	fmt.Fprintf(b, `<rect width="%d" height="%d" fill="#080808"/>`, imageSize, imageSize)
}

func svgClose(b *strings.Builder) {
	b.WriteString(`</svg>`)
}

func text(b *strings.Builder, x, y, size int, fill, weight, content string) {
	fmt.Fprintf(b,
		`<text x="%d" y="%d" font-family="Inter, 'Helvetica Neue', Arial, sans-serif" font-size="%d" font-weight="%s" fill="%s">%s</text>`,
		x, y, size, weight, fill, html.EscapeString(content))
}

// wrapLines word-wraps s into at most maxLines lines of roughly width
// runes; the last line is ellipsized when the text does not fit.
func wrapLines(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	var lines []string
	var line string
	for i, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if len([]rune(candidate)) > width && line != "" {
			lines = append(lines, line)
			line = word
			if len(lines) == maxLines-1 {
				rest := strings.Join(words[i:], " ")
				lines = append(lines, truncateLine(rest, width))
				return lines
			}
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, truncateLine(line, width))
	}
	return lines
}

func truncateLine(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
