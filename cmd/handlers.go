package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/starzmeet/listing-agent/internal/cms"
	"github.com/starzmeet/listing-agent/internal/export"
	"github.com/starzmeet/listing-agent/internal/model"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		location = "California"
	}
	maxResults := 10
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "max_results must be an integer")
			return
		}
		maxResults = n
	}
	if maxResults < 1 || maxResults > 100 {
		respondError(w, http.StatusBadRequest, "max_results must be between 1 and 100")
		return
	}

	known, err := s.st.ExistingIDs(r.Context(), location)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.broadcaster.OnInfo(fmt.Sprintf("%d places already known for %s. Fetching new places...", len(known), location))

	// The scrape outlives the request; progress flows over /events.
	go func() {
		if _, err := s.runner.Run(context.Background(), location, maxResults); err != nil {
			zap.L().Error("background scrape failed", zap.String("location", location), zap.Error(err))
			s.broadcaster.OnError(fmt.Sprintf("Search failed: %v", err))
		}
	}()

	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "Scraping started",
		"known_places": len(known),
	})
}

func (s *server) handleRetryPlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlaceID string `json:"place_id"`
		Website string `json:"website"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlaceID == "" || req.Address == "" {
		respondError(w, http.StatusBadRequest, "place_id and address are required")
		return
	}

	rec, err := s.runner.RetryPlace(r.Context(), req.PlaceID, req.Website, req.Address)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "Retry successful",
		"place":  rec,
	})
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	status := r.URL.Query().Get("status")

	stored, err := s.st.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var records []model.ListingRecord
	for _, sr := range stored {
		if location != "" && !strings.Contains(strings.ToLower(sr.Location), strings.ToLower(location)) {
			continue
		}
		rec := sr.Record
		if rec.Status == "" {
			rec.Status = model.StatusOld
		}
		if status != "" && rec.Status != status {
			continue
		}
		records = append(records, rec)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="autism_services_export.csv"`)
	if err := export.WriteCSV(w, records); err != nil {
		zap.L().Error("csv download failed", zap.Error(err))
	}
}

func (s *server) handleClearData(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")

	var err error
	if location != "" {
		_, err = s.st.DeleteByLocation(r.Context(), location)
	} else {
		_, err = s.st.DeleteAll(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	target := location
	if target == "" {
		target = "all locations"
	}
	s.broadcaster.OnInfo(fmt.Sprintf("Cleared data for %s", target))
	respondJSON(w, http.StatusOK, map[string]string{"status": "Data cleared"})
}

func (s *server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	kws, err := s.st.ListKeywords(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, kws)
}

func (s *server) handleAddKeyword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword  string `json:"keyword"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		respondError(w, http.StatusBadRequest, "Keyword is required")
		return
	}

	kw, err := s.st.AddKeyword(r.Context(), strings.TrimSpace(req.Keyword), req.Category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "Keyword added",
		"id":     kw.ID,
	})
}

func (s *server) handleUpdateKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}

	var req struct {
		Keyword  *string `json:"keyword"`
		Category *string `json:"category"`
		Active   *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.st.UpdateKeyword(r.Context(), id, req.Keyword, req.Category, req.Active); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "Keyword updated"})
}

func (s *server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}

	if err := s.st.DeleteKeyword(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "Keyword deleted"})
}

func (s *server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := s.st.SyncStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (s *server) handleSyncSingle(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		respondError(w, http.StatusServiceUnavailable, "cms is not configured")
		return
	}

	var req struct {
		PlaceID  string `json:"place_id"`
		SyncMode string `json:"sync_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlaceID == "" {
		respondError(w, http.StatusBadRequest, "place_id is required")
		return
	}

	mode, err := s.parseMode(req.SyncMode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sr, err := s.st.GetRecord(r.Context(), req.PlaceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Place not found")
		return
	}

	tally, err := s.syncer.SyncBatch(r.Context(), []model.StoredRecord{*sr}, mode, false)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tally)
}

func (s *server) handleSyncBulk(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		respondError(w, http.StatusServiceUnavailable, "cms is not configured")
		return
	}

	var req struct {
		PlaceIDs        []string `json:"place_ids"`
		SyncMode        string   `json:"sync_mode"`
		UseBulkEndpoint *bool    `json:"use_bulk_endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := s.parseMode(req.SyncMode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []model.StoredRecord
	if len(req.PlaceIDs) > 0 {
		records, err = s.st.RecordsByIDs(r.Context(), req.PlaceIDs)
	} else {
		records, err = s.st.UnsyncedRecords(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	useBulk := s.useBulk
	if req.UseBulkEndpoint != nil {
		useBulk = *req.UseBulkEndpoint
	}

	tally, err := s.syncer.SyncBatch(r.Context(), records, mode, useBulk)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tally)
}

// parseMode resolves a per-request sync mode, falling back to the configured
// default when the request leaves it empty.
func (s *server) parseMode(raw string) (cms.Mode, error) {
	if raw == "" {
		raw = s.syncMode
	}
	return cms.ParseMode(raw)
}

func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Encode())
			flusher.Flush()
		}
	}
}
