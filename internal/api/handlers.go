package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zeecm/parking/internal/cache"
	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/jobs"
	"github.com/zeecm/parking/internal/log"
)

const (
	defaultHistoryWindow = 24 * time.Hour
	defaultHistoryLimit  = 100
	maxHistoryLimit      = 1000
)

// availabilityResponse is the merged snapshot payload.
type availabilityResponse struct {
	RefreshID string        `json:"refresh_id"`
	FetchedAt time.Time     `json:"fetched_at"`
	Sources   []string      `json:"sources"`
	Total     int           `json:"total"`
	Lots      []carpark.Lot `json:"lots"`
}

// handleAvailability serves the latest merged snapshot, optionally
// filtered by agency and lot type.
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Cache.GetSnapshot(cache.SnapshotKey)
	if !ok {
		respondError(w, r, http.StatusServiceUnavailable, ErrSnapshotUnavailable)
		return
	}

	agency := carpark.Agency(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("agency"))))
	// Single-letter upstream codes and full names are both accepted.
	var lotType carpark.LotType
	if q := r.URL.Query().Get("lot_type"); q != "" {
		lotType = carpark.ParseLotType(q)
	}

	lots := carpark.Filter(snap.Lots, agency, lotType)

	writeJSON(w, http.StatusOK, availabilityResponse{
		RefreshID: snap.RefreshID,
		FetchedAt: snap.FetchedAt,
		Sources:   snap.Sources,
		Total:     len(lots),
		Lots:      lots,
	})
}

// carparkResponse is the single-carpark payload: every lot type the
// snapshot has for one carpark.
type carparkResponse struct {
	CarparkID string        `json:"carpark_id"`
	FetchedAt time.Time     `json:"fetched_at"`
	Lots      []carpark.Lot `json:"lots"`
}

// handleCarparkAvailability serves the snapshot rows of one carpark.
func (s *Server) handleCarparkAvailability(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.deps.Cache.GetSnapshot(cache.SnapshotKey)
	if !ok {
		respondError(w, r, http.StatusServiceUnavailable, ErrSnapshotUnavailable)
		return
	}

	id := carpark.Token(chi.URLParam(r, "carparkID"))
	var lots []carpark.Lot
	for _, l := range snap.Lots {
		if carpark.Token(l.CarparkID) == id {
			lots = append(lots, l)
		}
	}

	if len(lots) == 0 {
		respondError(w, r, http.StatusNotFound, ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, carparkResponse{
		CarparkID: lots[0].CarparkID,
		FetchedAt: snap.FetchedAt,
		Lots:      lots,
	})
}

// handleCarparkDetails serves the stored URA detail records of one
// carpark: tariffs, capacity, operating hours.
func (s *Server) handleCarparkDetails(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrStoreUnavailable)
		return
	}

	id := carpark.Token(chi.URLParam(r, "carparkID"))
	details, err := s.deps.Store.Details(r.Context(), id)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "api.details_query_failed").
			Str(log.FieldCarparkID, id).
			Msg("detail query failed")
		respondError(w, r, http.StatusInternalServerError, nil)
		return
	}
	if len(details) == 0 {
		respondError(w, r, http.StatusNotFound, ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"carpark_id": details[0].CarparkID,
		"details":    details,
	})
}

// handleHistory serves the stored availability history of one carpark.
// Query params: since (Go duration, default 24h) and limit.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrStoreUnavailable)
		return
	}

	window := defaultHistoryWindow
	if q := r.URL.Query().Get("since"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			respondError(w, r, http.StatusBadRequest, errors.New("invalid since duration"))
			return
		}
		window = d
	}

	limit := defaultHistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			respondError(w, r, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	id := carpark.Token(chi.URLParam(r, "carparkID"))
	entries, err := s.deps.Store.History(r.Context(), id, time.Now().Add(-window), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("event", "api.history_query_failed").
			Str(log.FieldCarparkID, id).
			Msg("history query failed")
		respondError(w, r, http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"carpark_id": id,
		"count":      len(entries),
		"history":    entries,
	})
}

// statusResponse reports service and refresh state.
type statusResponse struct {
	Version     string       `json:"version,omitempty"`
	Uptime      int64        `json:"uptime_seconds"`
	LastRefresh *jobs.Result `json:"last_refresh,omitempty"`
}

// handleStatus reports the last refresh outcome and service uptime.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: s.currentConfig().Version,
		Uptime:  int64(time.Since(s.startTime).Seconds()),
	}
	if s.deps.Refresher != nil {
		resp.LastRefresh = s.deps.Refresher.LastResult()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh triggers one refresh cycle and reports its result.
// Concurrent triggers answer 409 instead of queueing.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Refresher == nil {
		respondError(w, r, http.StatusServiceUnavailable, errors.New("refresh not available"))
		return
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str("event", "api.refresh_triggered").
		Str("remote_addr", r.RemoteAddr).
		Msg("manual refresh triggered")

	res, err := s.deps.Refresher.Run(r.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrRefreshInProgress) {
			respondError(w, r, http.StatusConflict, ErrRefreshBusy)
			return
		}
		// All sources failed; the result still describes the attempt.
		if res != nil {
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		respondError(w, r, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
