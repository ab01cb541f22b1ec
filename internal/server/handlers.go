package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rickgao/arbfeed/internal/connection"
	"github.com/rickgao/arbfeed/internal/engine"
	"github.com/rickgao/arbfeed/internal/model"
	"github.com/rickgao/arbfeed/internal/poller"
	"github.com/rickgao/arbfeed/internal/version"
	"github.com/rickgao/arbfeed/internal/view"
)

const maxBodyBytes = 1 << 20

type healthResponse struct {
	Status       string           `json:"status"` // "ok" or "degraded"
	Running      bool             `json:"running"`
	Connection   connection.State `json:"connection"`
	Records      int              `json:"records"`
	Active       int              `json:"active"`
	UpdatedAt    int64            `json:"updated_at"`
	CatalogFresh bool             `json:"catalog_fresh"`
	Version      string           `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.feed.Status()

	fresh := false
	if s.catalog != nil {
		fresh = s.catalog.Snapshot().Fresh(s.now(), s.cfg.CatalogMaxAge)
	}

	resp := healthResponse{
		Status:       "ok",
		Running:      st.Running,
		Connection:   st.Connection,
		Records:      st.Records,
		Active:       st.Active,
		UpdatedAt:    st.UpdatedAt,
		CatalogFresh: fresh,
		Version:      version.Version,
	}
	if !st.Running || st.Connection != connection.StateConnected {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.Query()) == 0 {
		writeJSON(w, http.StatusOK, s.feed.GetPage())
		return
	}

	p, err := paramsFromQuery(s.feed.ViewParameters(), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.feed.Query(p))
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.feed.ViewParameters())
}

func (s *Server) handlePutView(w http.ResponseWriter, r *http.Request) {
	var p view.Params
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.Sort.Key != "" {
		key, err := view.ParseSortKey(string(p.Sort.Key))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p.Sort.Key = key
	}
	if p.Sort.Direction != "" {
		dir, err := view.ParseDirection(string(p.Sort.Direction))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		p.Sort.Direction = dir
	}

	s.feed.SetViewParameters(p)
	writeJSON(w, http.StatusOK, s.feed.ViewParameters())
}

type filtersResponse struct {
	Exchanges []string  `json:"exchanges"`
	Assets    []string  `json:"assets"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	resp := filtersResponse{Exchanges: []string{}, Assets: []string{}}
	if s.catalog != nil {
		snap := s.catalog.Snapshot()
		resp.FetchedAt = snap.PairsFetchedAt
		if snap.Exchanges != nil {
			resp.Exchanges = snap.Exchanges
		}
		if snap.Assets != nil {
			resp.Assets = snap.Assets
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type exchangeStatusResponse struct {
	ServiceRunning   bool                            `json:"service_running"`
	ExchangeStatuses map[string]model.ExchangeStatus `json:"exchange_statuses"`
	FetchedAt        time.Time                       `json:"fetched_at"`
	LastError        string                          `json:"last_error,omitempty"`
}

func (s *Server) handleExchangeStatus(w http.ResponseWriter, r *http.Request) {
	resp := exchangeStatusResponse{ExchangeStatuses: map[string]model.ExchangeStatus{}}
	if s.catalog != nil {
		snap := s.catalog.Snapshot()
		resp.ServiceRunning = snap.ServiceRunning
		resp.FetchedAt = snap.StatusFetchedAt
		resp.LastError = snap.LastError
		if snap.Statuses != nil {
			resp.ExchangeStatuses = snap.Statuses
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.feed.Status())
}

func (s *Server) handleFeedStart(w http.ResponseWriter, r *http.Request) {
	if err := s.feed.Start(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, engine.ErrNotRunning) {
			code = http.StatusServiceUnavailable
		}
		writeError(w, code, err)
		return
	}
	s.logger.Info("feed start requested", "request_id", requestID(r))
	writeJSON(w, http.StatusAccepted, s.feed.Status())
}

func (s *Server) handleFeedStop(w http.ResponseWriter, r *http.Request) {
	if err := s.feed.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("feed stop requested", "request_id", requestID(r))
	writeJSON(w, http.StatusOK, s.feed.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

var _ Catalog = (*poller.Catalog)(nil)
