package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"spedify/pkg/api"
	"spedify/pkg/cache"
	"spedify/pkg/history"
	"spedify/pkg/logger"
	"spedify/pkg/models"
	"spedify/pkg/search"
	"strings"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const maxConcurrentScrapes = 3

type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
	Compare(ctx context.Context, detailURL, name string) (*models.ComparisonResult, error)
}

type server struct {
	searcher  Searcher
	store     *cache.Cache
	tracker   *history.Tracker
	dedup     *logger.Deduper
	log       *zap.Logger
	semaphore chan struct{}
}

func newServer(searcher Searcher, store *cache.Cache, log *zap.Logger) *server {
	return &server{
		searcher:  searcher,
		store:     store,
		tracker:   history.NewTracker(),
		dedup:     logger.NewDeduper(log, logger.DefaultFlushDelay),
		log:       log,
		semaphore: make(chan struct{}, maxConcurrentScrapes),
	}
}

func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", docsHandler)
	r.Get("/search", s.searchHandler)
	r.Get("/compare", s.compareHandler)
	r.Get("/history", s.historyHandler)
	r.Post("/history", s.recordHistoryHandler)
	r.Post("/track", s.trackHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func docsHandler(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Spedify Price Comparison API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.WriteBadRequest(w, "Missing query parameter q.", r.URL.Path)
		return
	}

	if cached, ok := s.store.GetSearch(query); ok {
		s.dedup.Info("Cache hit for search/" + query)
		api.WriteJSON(w, http.StatusOK, cached, r.URL.Path)
		return
	}

	s.semaphore <- struct{}{}
	res, err := s.searcher.Search(r.Context(), query)
	<-s.semaphore

	if err != nil {
		s.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		writeScrapeError(w, err, r.URL.Path)
		return
	}

	s.store.SetSearch(query, res)
	api.WriteJSON(w, http.StatusOK, res, r.URL.Path)
}

func (s *server) compareHandler(w http.ResponseWriter, r *http.Request) {
	detailURL := strings.TrimSpace(r.URL.Query().Get("url"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if detailURL == "" {
		api.WriteBadRequest(w, "Missing query parameter url.", r.URL.Path)
		return
	}

	if cached, ok := s.store.GetComparison(detailURL); ok {
		s.dedup.Info("Cache hit for compare/" + detailURL)
		api.WriteJSON(w, http.StatusOK, cached, r.URL.Path)
		return
	}

	s.semaphore <- struct{}{}
	res, err := s.searcher.Compare(r.Context(), detailURL, name)
	<-s.semaphore

	if err != nil {
		s.log.Warn("comparison failed", zap.String("url", detailURL), zap.Error(err))
		writeScrapeError(w, err, r.URL.Path)
		return
	}

	s.store.SetComparison(detailURL, res)
	api.WriteJSON(w, http.StatusOK, res, r.URL.Path)
}

type recordRequest struct {
	ProductKey string `json:"product_key"`
	Price      string `json:"price"`
	Platform   string `json:"platform"`
}

type historyResponse struct {
	ProductKey string                     `json:"product_key"`
	Point      *models.PriceHistoryPoint  `json:"point,omitempty"`
	History    []models.PriceHistoryPoint `json:"history"`
	Stats      models.Stats               `json:"stats"`
}

func (s *server) recordHistoryHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid JSON body. Expected {product_key, price, platform}.", r.URL.Path)
		return
	}
	if req.ProductKey == "" || req.Price == "" {
		api.WriteBadRequest(w, "Fields product_key and price are required.", r.URL.Path)
		return
	}

	past, err := s.store.History(req.ProductKey)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	point := s.tracker.Record(past, req.Price, req.Platform)
	if err := s.store.AppendHistory(req.ProductKey, point); err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	all := append(past, point)
	api.WriteJSON(w, http.StatusCreated, historyResponse{
		ProductKey: req.ProductKey,
		Point:      &point,
		History:    all,
		Stats:      history.Statistics(all),
	}, r.URL.Path)
}

func (s *server) historyHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("product_key"))
	if key == "" {
		api.WriteBadRequest(w, "Missing query parameter product_key.", r.URL.Path)
		return
	}

	points, err := s.store.History(key)
	if err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	if points == nil {
		points = []models.PriceHistoryPoint{}
	}

	api.WriteJSON(w, http.StatusOK, historyResponse{
		ProductKey: key,
		History:    points,
		Stats:      history.Statistics(points),
	}, r.URL.Path)
}

func (s *server) trackHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var p models.TrackedProduct
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		api.WriteBadRequest(w, "Invalid JSON body. Expected {product_key, name, detail_url}.", r.URL.Path)
		return
	}
	if p.ProductKey == "" || p.DetailURL == "" {
		api.WriteBadRequest(w, "Fields product_key and detail_url are required.", r.URL.Path)
		return
	}

	if err := s.store.Track(p); err != nil {
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}
	api.WriteJSON(w, http.StatusCreated, p, r.URL.Path)
}

func writeScrapeError(w http.ResponseWriter, err error, instance string) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		api.WriteBadRequest(w, err.Error(), instance)
	case errors.Is(err, models.ErrNoProducts),
		errors.Is(err, models.ErrNoSearchResults),
		errors.Is(err, models.ErrProductNotFound):
		api.WriteNotFound(w, err.Error(), instance)
	case isTimeout(err):
		api.WriteGatewayTimeout(w, err.Error(), instance)
	case errors.Is(err, search.ErrUpstreamStatus):
		api.WriteBadGateway(w, err.Error(), instance)
	default:
		api.WriteInternalServerError(w, err, instance)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "timeout")
}
