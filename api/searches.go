package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/scraper"
	"github.com/lukman83/gunpla-scrap/internal/store"
)

type searchRequest struct {
	SearchTerm string `json:"searchTerm"`
	Options    struct {
		Fast        bool `json:"fast"`
		LongTimeout bool `json:"longTimeout"`
	} `json:"options"`
}

type searchStarted struct {
	Message    string `json:"message"`
	SearchTerm string `json:"searchTerm"`
}

type searchDetail struct {
	Search  *models.SearchRun `json:"search"`
	Results *models.ResultSet `json:"results"`
}

// listSearches serves GET /api/searches?limit=N. A missing or unparsable
// limit means the store default.
func (h *handler) listSearches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.ListRecentRuns(r.Context(), limit)
	if err != nil {
		h.log.Error("list searches", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list searches")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// getSearch serves GET /api/searches/{id}.
func (h *handler) getSearch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid search id")
		return
	}

	run, results, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("search %d not found", id))
		return
	}
	if err != nil {
		h.log.Error("get search", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load search")
		return
	}
	writeJSON(w, http.StatusOK, searchDetail{Search: run, Results: results})
}

// startSearch serves POST /api/searches. The run continues after the
// response; its results appear under GET /api/searches when it is saved.
func (h *handler) startSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	term := strings.TrimSpace(req.SearchTerm)
	if term == "" {
		writeError(w, http.StatusBadRequest, "Search term is required")
		return
	}

	opts := h.options(req.Options.Fast, req.Options.LongTimeout)
	err := h.searcher.RunSearchAsync(r.Context(), term, opts, func(run *scraper.Run, err error) {
		if err != nil {
			h.log.Error("background search failed", zap.String("term", term), zap.Error(err))
			return
		}
		h.log.Info("background search finished",
			zap.String("term", term),
			zap.Int64("run_id", run.ID),
			zap.Int("total", run.Results.Total()))
	})
	if errors.Is(err, scraper.ErrBusy) {
		writeError(w, http.StatusConflict, "a search is already running")
		return
	}
	if err != nil {
		h.log.Error("start search", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start search")
		return
	}

	writeJSON(w, http.StatusAccepted, searchStarted{
		Message:    fmt.Sprintf("Search for %q started. Check recent searches for results.", term),
		SearchTerm: term,
	})
}
