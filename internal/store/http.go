package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"resultsync/internal/domain"
	"resultsync/internal/query"
)

const maxErrorBody = 4 << 10

type searchResponse struct {
	Entities []domain.Entity `json:"entities"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTP is a Store backed by a remote JSON service
type HTTP struct {
	base   string
	client *http.Client
}

// NewHTTP creates a client for the service at baseURL. A nil client gets a
// default with a request timeout.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid store url %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: strings.TrimRight(baseURL, "/"), client: client}, nil
}

// Search posts req to {base}/search
func (h *HTTP) Search(ctx context.Context, req query.Request) ([]domain.Entity, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out searchResponse
	if err := h.do(httpReq, &out); err != nil {
		return nil, fmt.Errorf("search %s: %w", req.EntityType, err)
	}
	return out.Entities, nil
}

// Fetch gets {base}/entities/{type}/{id}
func (h *HTTP) Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error) {
	endpoint := fmt.Sprintf("%s/entities/%s/%d", h.base, url.PathEscape(id.Type), id.ID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Entity{}, err
	}

	var out domain.Entity
	if err := h.do(httpReq, &out); err != nil {
		return domain.Entity{}, fmt.Errorf("fetch %s: %w", id, err)
	}
	return out, nil
}

func (h *HTTP) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &StatusError{Code: resp.StatusCode, Body: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Searcher is the part of results.Store the handler serves
type Searcher interface {
	Search(ctx context.Context, req query.Request) ([]domain.Entity, error)
	Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error)
}

// Handler serves s with the endpoints HTTP expects
func Handler(s Searcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		var req query.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		found, err := s.Search(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		if found == nil {
			found = []domain.Entity{}
		}
		writeJSON(w, http.StatusOK, searchResponse{Entities: found})
	})
	mux.HandleFunc("GET /entities/{type}/{id}", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", r.PathValue("id")))
			return
		}
		e, err := s.Fetch(r.Context(), domain.EntityID{Type: r.PathValue("type"), ID: n})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	})
	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, query.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	body, _ := json.Marshal(errorResponse{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
