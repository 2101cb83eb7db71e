// Package server exposes the enhancement service over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/risterz/pantrypal-ai/internal/types"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
	"github.com/risterz/pantrypal-ai/pkg/sites"
	"github.com/risterz/pantrypal-ai/pkg/store"
	"github.com/rs/zerolog"
)

// Message is the WebSocket envelope in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Service *enhancer.Service
	// Store is optional; without it the read endpoints answer 503.
	Store          types.EnhancementStore
	Metrics        *Metrics
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// EnhanceRequest is the body of POST /api/enhance and the data of a
// WebSocket "enhance" message.
type EnhanceRequest struct {
	URL      string `json:"url"`
	RecipeID string `json:"recipe_id"`
	Title    string `json:"title"`
	Site     string `json:"site"`
	Refine   bool   `json:"refine"`
}

type EnhanceResponse struct {
	RecipeID     string   `json:"recipe_id,omitempty"`
	Site         string   `json:"site"`
	Enhancements []string `json:"enhancements"`
	Cleaned      bool     `json:"cleaned"`
	CleanError   string   `json:"clean_error,omitempty"`
}

type Server struct {
	config   Config
	router   *chi.Mux
	upgrader websocket.Upgrader
}

func NewWithConfig(config Config) *Server {
	if config.Service == nil {
		config.Service = enhancer.NewService(enhancer.ServiceConfig{})
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics()
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return originAllowed(config.AllowedOrigins, r) },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.config.Metrics.Handler())
	s.router.Get("/ws", s.handleWebSocket)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/enhance", s.handleEnhance)
		r.Get("/recipes/{id}/scraped", s.handleScraped)
		r.Get("/similar", s.handleSimilar)
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.config.Logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.config.Store != nil {
		if err := s.config.Store.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var body EnhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := body.request()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	select {
	case out := <-s.config.Service.Submit(r.Context(), req):
		if out.Err != nil {
			respondError(w, statusFor(out.Err), out.Err.Error())
			return
		}
		respondJSON(w, http.StatusOK, response(out))
	case <-r.Context().Done():
		respondError(w, http.StatusGatewayTimeout, "request cancelled")
	}
}

func (s *Server) handleScraped(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	scraped, err := s.config.Store.GetScraped(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.config.Logger.Error().Err(err).Msg("failed to read scraped enhancements")
		respondError(w, http.StatusInternalServerError, "failed to read enhancements")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"recipe_id":    scraped.RecipeID,
		"enhancements": scraped.Enhancements,
		"source_url":   scraped.SourceURL,
		"scraped_at":   scraped.ScrapedAt,
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if s.config.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tips, err := s.config.Store.SimilarTips(r.Context(), query, limit)
	if errors.Is(err, store.ErrNoEmbedder) {
		respondError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		s.config.Logger.Error().Err(err).Msg("similarity search failed")
		respondError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}

	type tip struct {
		RecipeID string  `json:"recipe_id"`
		Text     string  `json:"text"`
		Distance float64 `json:"distance"`
	}
	results := make([]tip, 0, len(tips))
	for _, t := range tips {
		results = append(results, tip{RecipeID: t.RecipeID, Text: t.Text, Distance: t.Distance})
	}
	respondJSON(w, http.StatusOK, results)
}

// handleWebSocket accepts "enhance" messages and answers each with a status
// message followed by a "result" or "error" message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var pending sync.WaitGroup
	out := make(chan Message, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range out {
			if err := conn.WriteJSON(msg); err != nil {
				s.config.Logger.Debug().Err(err).Msg("error sending message")
			}
		}
	}()
	defer func() {
		cancel()
		pending.Wait()
		close(out)
		<-done
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.config.Logger.Debug().Err(err).Msg("error reading message")
			}
			return
		}

		if msg.Type != "enhance" {
			out <- Message{Type: "error", Content: fmt.Sprintf("unknown message type %q", msg.Type)}
			continue
		}

		body, err := enhanceBody(msg)
		if err != nil {
			out <- Message{Type: "error", Content: err.Error()}
			continue
		}

		req, err := body.request()
		if err != nil {
			out <- Message{Type: "error", Content: err.Error()}
			continue
		}

		out <- Message{Type: "status", Content: fmt.Sprintf("Processing URL: %s", req.URL)}
		result := s.config.Service.Submit(ctx, req)
		pending.Add(1)
		go func() {
			defer pending.Done()
			o := <-result
			if o.Err != nil {
				out <- Message{Type: "error", Content: o.Err.Error(), Data: map[string]string{"kind": string(enhancer.Classify(o.Err))}}
				return
			}
			out <- Message{Type: "result", Content: fmt.Sprintf("Found %d enhancements", len(o.Points)), Data: response(o)}
		}()
	}
}

// enhanceBody reads an enhance message. Content is the URL unless Data
// carries one.
func enhanceBody(msg Message) (EnhanceRequest, error) {
	body := EnhanceRequest{URL: msg.Content}
	if msg.Data == nil {
		return body, nil
	}

	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return EnhanceRequest{}, fmt.Errorf("invalid data: %w", err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return EnhanceRequest{}, fmt.Errorf("invalid data: %w", err)
	}
	if body.URL == "" {
		body.URL = msg.Content
	}
	return body, nil
}

func (b EnhanceRequest) request() (enhancer.Request, error) {
	url := strings.TrimSpace(b.URL)
	if url == "" {
		return enhancer.Request{}, errors.New("url is required")
	}
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	req := enhancer.Request{URL: url, RecipeID: b.RecipeID, Title: b.Title, Refine: b.Refine}
	if b.Site != "" {
		site, err := sites.Parse(b.Site)
		if err != nil {
			return enhancer.Request{}, err
		}
		req.Site = site
	}
	return req, nil
}

func response(out enhancer.Outcome) EnhanceResponse {
	resp := EnhanceResponse{
		RecipeID:     out.Request.RecipeID,
		Site:         string(out.Site),
		Enhancements: out.Points,
		Cleaned:      out.Cleaned,
	}
	if resp.Enhancements == nil {
		resp.Enhancements = []string{}
	}
	if out.CleanErr != nil {
		resp.CleanError = out.CleanErr.Error()
	}
	return resp
}

func statusFor(err error) int {
	switch enhancer.Classify(err) {
	case enhancer.KindFetch:
		return http.StatusBadGateway
	case enhancer.KindParse:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func originAllowed(allowed []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
