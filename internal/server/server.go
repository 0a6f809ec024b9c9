// Package server provides the HTTP server and frame protocol handlers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bryan-buckman/snframes/internal/config"
	"github.com/bryan-buckman/snframes/internal/feed"
	"github.com/bryan-buckman/snframes/internal/frame"
	"github.com/bryan-buckman/snframes/internal/territory"
)

// Browsing button positions. Button 3 is the "open post" link and button 4
// posts to the selection flow; neither moves the cursor.
const (
	buttonPrev = 1
	buttonNext = 2
)

const (
	selectShortlistSize = 3
	feedPageSize        = 10
)

const (
	labelPrev   = "Previous"
	labelNext   = "Next"
	labelOpen   = "Open post"
	labelChange = "Change territory"
	labelView   = "View posts"
	labelOther  = "Pick another"
	labelMore   = "More..."
	inputPrompt = "Type ~territory"
)

// Server is the main HTTP server.
type Server struct {
	cfg        *config.Config
	registry   *territory.Registry
	cache      *feed.Cache
	codec      *frame.Codec
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server around the shared feed cache. The cache is
// injected so handlers can be exercised against a fake loader in tests.
func New(cfg *config.Config, registry *territory.Registry, cache *feed.Cache, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		cache:    cache,
		codec:    frame.NewCodec(registry.Default()),
		logger:   logger,
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/.well-known/farcaster.json", s.handleManifest)

	r.Get("/frames/sn", s.handleFrame)
	r.Post("/frames/sn", s.handleFrame)
	r.Get("/frames/sn/select", s.handleSelect)
	r.Post("/frames/sn/select", s.handleSelect)
	r.Get("/frames/sn/image", s.handleImage)

	r.Get("/api/rss", s.handleFeedJSON)

	s.router = r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- Request parsing ---

type untrustedData struct {
	State       string `json:"state"`
	ButtonIndex int    `json:"buttonIndex"`
	InputText   string `json:"inputText"`
}

type frameRequest struct {
	UntrustedData untrustedData `json:"untrustedData"`
}

// parseFrameRequest extracts the previous state, button index, and trimmed
// input text from a frame POST. GETs and malformed bodies fall back to the
// default state; the payload is untrusted and never an error source.
func (s *Server) parseFrameRequest(r *http.Request) (frame.State, int, string) {
	if r.Method != http.MethodPost {
		return s.codec.Default(), 0, ""
	}
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return s.codec.Default(), 0, ""
	}
	state := s.codec.Decode(req.UntrustedData.State)
	return state, req.UntrustedData.ButtonIndex, strings.TrimSpace(req.UntrustedData.InputText)
}

// --- Frame controller ---

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	prev, button, input := s.parseFrameRequest(r)
	base := s.baseURL(r)

	terr := s.registry.Resolve(prev.Territory)
	index := prev.Index

	// An explicit territory in the URL wins over the token and restarts
	// pagination when it actually changes the territory.
	if q := r.URL.Query().Get("territory"); q != "" {
		resolved := s.registry.Resolve(q)
		if resolved != terr {
			index = 0
		}
		terr = resolved
	}

	// Typed input wins over everything else for this request. Any
	// territory can be typed, not just the shortlist; a nonexistent one
	// simply fetches an empty feed upstream.
	if input != "" {
		terr = territory.Normalize(input)
		index = 0
	}

	current, err := s.cache.GetOrFetch(r.Context(), terr)
	if err != nil {
		s.logger.Error("feed unavailable", "territory", terr, "error", err)
		s.writeFrame(w, s.emptyFrame(base, terr))
		return
	}
	if len(current.Items) == 0 {
		s.writeFrame(w, s.emptyFrame(base, terr))
		return
	}

	switch button {
	case buttonPrev:
		index--
	case buttonNext:
		index++
	}
	// Clamp against the live feed; the token's index may be stale.
	if index > len(current.Items)-1 {
		index = len(current.Items) - 1
	}
	if index < 0 {
		index = 0
	}

	item := current.Items[index]
	link := item.Link
	if link == "" {
		link = territory.SiteURL + "/" + terr
	}

	postURL := s.frameURL(base, terr)
	s.writeFrame(w, frame.Response{Frame: frame.Frame{
		Version: frame.Version,
		Image: frame.Image{
			URL:         s.imageURL(base, "feed", terr, index),
			AspectRatio: frame.AspectSquare,
		},
		Buttons: []frame.Button{
			{Label: labelPrev, Action: frame.ActionPost, Target: postURL},
			{Label: labelNext, Action: frame.ActionPost, Target: postURL},
			{Label: labelOpen, Action: frame.ActionLink, Target: link},
			{Label: labelChange, Action: frame.ActionPost, Target: s.selectURL(base)},
		},
		PostURL: postURL,
		State:   s.codec.Encode(frame.State{Territory: terr, Index: index}),
	}})
}

// emptyFrame is the shared "no content" view, rendered both for an empty
// feed and for an unavailable one, always with a recovery action.
func (s *Server) emptyFrame(base, terr string) frame.Response {
	return frame.Response{Frame: frame.Frame{
		Version: frame.Version,
		Image: frame.Image{
			URL:         s.imageURL(base, "empty", terr, 0),
			AspectRatio: frame.AspectSquare,
		},
		Buttons: []frame.Button{
			{Label: labelChange, Action: frame.ActionPost, Target: s.selectURL(base)},
		},
		PostURL: base + "/frames/sn",
		State:   s.codec.Encode(frame.State{Territory: terr}),
	}}
}

// --- Territory selection sub-flow ---

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	prev, button, input := s.parseFrameRequest(r)
	base := s.baseURL(r)
	postURL := s.selectURL(base)

	terr := s.registry.Resolve(prev.Territory)
	stage := frame.StageSelect

	shortlist := s.registry.Shortlist(selectShortlistSize)
	buttonMore := len(shortlist) + 1

	// Button indices only mean something relative to the view that posted
	// them, so the previous stage gates their interpretation: a stage-less
	// token is an entry press from browsing or the empty view, and the
	// confirm view's only post-back is "pick another". Both just render
	// the selection list.
	if prev.Stage == frame.StageSelect {
		if button >= 1 && button <= len(shortlist) {
			terr = shortlist[button-1]
			stage = frame.StageConfirm
		} else if button == buttonMore && input != "" {
			// "More options" confirms whatever territory was typed;
			// with nothing typed the flow stays on the selection view.
			terr = territory.Normalize(input)
			stage = frame.StageConfirm
		}
	}

	if stage == frame.StageConfirm {
		feedURL := s.frameURL(base, terr)
		s.writeFrame(w, frame.Response{Frame: frame.Frame{
			Version: frame.Version,
			Image: frame.Image{
				URL:         s.selectImageURL(base, terr),
				AspectRatio: frame.AspectSquare,
			},
			Buttons: []frame.Button{
				{Label: labelView, Action: frame.ActionPost, Target: feedURL},
				{Label: labelOther, Action: frame.ActionPost, Target: postURL},
			},
			PostURL: feedURL,
			State:   s.codec.Encode(frame.State{Territory: terr, Stage: frame.StageConfirm}),
		}})
		return
	}

	buttons := make([]frame.Button, 0, len(shortlist)+1)
	for _, option := range shortlist {
		buttons = append(buttons, frame.Button{Label: option, Action: frame.ActionPost, Target: postURL})
	}
	buttons = append(buttons, frame.Button{Label: labelMore, Action: frame.ActionPost, Target: postURL})

	s.writeFrame(w, frame.Response{Frame: frame.Frame{
		Version: frame.Version,
		Image: frame.Image{
			URL:         s.selectImageURL(base, ""),
			AspectRatio: frame.AspectSquare,
		},
		Buttons:   buttons,
		PostURL:   postURL,
		State:     s.codec.Encode(frame.State{Territory: terr, Stage: frame.StageSelect}),
		InputText: inputPrompt,
	}})
}

// --- Plain JSON feed endpoint ---

type feedJSONResponse struct {
	Items []feed.Item `json:"items"`
	Error string      `json:"error,omitempty"`
}

func (s *Server) handleFeedJSON(w http.ResponseWriter, r *http.Request) {
	terr := s.registry.Resolve(r.URL.Query().Get("territory"))

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	current, err := s.cache.GetOrFetch(r.Context(), terr)
	if err != nil {
		s.logger.Error("feed unavailable", "territory", terr, "error", err)
		status := http.StatusOK
		if !isFeedError(err) {
			status = http.StatusBadGateway
		}
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(w, status, feedJSONResponse{Items: []feed.Item{}, Error: err.Error()})
		return
	}

	items := current.Items
	start := (page - 1) * feedPageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + feedPageSize
	if end > len(items) {
		end = len(items)
	}

	ttl := int(s.cfg.CacheTTL.Seconds())
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", ttl, 2*ttl))
	writeJSON(w, http.StatusOK, feedJSONResponse{Items: items[start:end]})
}

// isFeedError reports whether err belongs to the known fetch taxonomy, as
// opposed to an unexpected failure.
func isFeedError(err error) bool {
	var upstream *feed.UpstreamError
	var parse *feed.ParseError
	return errors.Is(err, feed.ErrTimeout) || errors.As(err, &upstream) || errors.As(err, &parse)
}

// --- Misc handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Stacker News Frames",
		"version": "1",
		"homeUrl": base + "/frames/sn",
		"iconUrl": base + "/icon.png",
		"splash": map[string]any{
			"imageUrl":        base + "/splash.png",
			"backgroundColor": "#080808",
		},
	})
}

// --- Helpers ---

// baseURL prefers the configured deployment URL and otherwise reconstructs
// it from forwarding headers, so frames keep working behind a proxy.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		host = "localhost"
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if strings.Contains(host, "localhost") || strings.HasPrefix(host, "127.") {
			proto = "http"
		} else {
			proto = "https"
		}
	}
	return proto + "://" + host
}

func (s *Server) frameURL(base, terr string) string {
	return base + "/frames/sn?territory=" + url.QueryEscape(terr)
}

func (s *Server) selectURL(base string) string {
	return base + "/frames/sn/select"
}

func (s *Server) imageURL(base, mode, terr string, index int) string {
	v := url.Values{}
	v.Set("territory", terr)
	v.Set("mode", mode)
	if mode == "feed" {
		v.Set("index", strconv.Itoa(index))
	}
	return base + "/frames/sn/image?" + v.Encode()
}

func (s *Server) selectImageURL(base, selected string) string {
	v := url.Values{}
	v.Set("mode", "select")
	if selected != "" {
		v.Set("selected", selected)
	}
	return base + "/frames/sn/image?" + v.Encode()
}

func (s *Server) writeFrame(w http.ResponseWriter, resp frame.Response) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
