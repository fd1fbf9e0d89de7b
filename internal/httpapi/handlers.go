package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kikuomax/tweetscape-streams/internal/common"
	"github.com/kikuomax/tweetscape-streams/internal/credential"
	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/models"
	"github.com/kikuomax/tweetscape-streams/internal/timeline"
	"github.com/kikuomax/tweetscape-streams/internal/twitter"
)

type handlers struct {
	svc    Service
	logger logging.Logger
}

type syncRequest struct {
	RequesterID   string `json:"requesterId"`
	SeedAccountID string `json:"seedAccountId"`
}

type trackRequest struct {
	RequesterID string `json:"requesterId"`
	Username    string `json:"username"`
}

type trackResponse struct {
	Created bool           `json:"created"`
	Account trackedAccount `json:"account"`
}

type trackedAccount struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Name        string  `json:"name,omitempty"`
	RequesterID string  `json:"requesterId"`
	LatestID    *string `json:"latestId"`
	EarliestID  *string `json:"earliestId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// sync runs the orchestrator synchronously.
func (h *handlers) sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	requesterID, ok := requesterOf(w, r, req.RequesterID)
	if !ok {
		return
	}
	req.RequesterID = requesterID
	if req.SeedAccountID == "" {
		writeError(w, http.StatusBadRequest, "seedAccountId is required")
		return
	}

	run, err := h.svc.SyncAccount(r.Context(), req.RequesterID, req.SeedAccountID)
	if err != nil {
		status, msg := h.statusOf(r, err)
		if run != nil && status != http.StatusNotFound {
			writeJSON(w, status, struct {
				errorResponse
				Run *models.SyncRun `json:"run"`
			}{errorResponse{msg}, run})
			return
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *handlers) track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	requesterID, ok := requesterOf(w, r, req.RequesterID)
	if !ok {
		return
	}
	req.RequesterID = requesterID
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	tracked, created, err := h.svc.Track(r.Context(), req.RequesterID, req.Username)
	if err != nil {
		status, msg := h.statusOf(r, err)
		writeError(w, status, msg)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, trackResponse{
		Created: created,
		Account: trackedAccount{
			ID:          tracked.ID,
			Username:    tracked.Username,
			Name:        tracked.Name,
			RequesterID: tracked.RequesterID,
			LatestID:    tracked.Watermark.LatestID,
			EarliestID:  tracked.Watermark.EarliestID,
		},
	})
}

func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, msg := h.statusOf(r, err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// requesterOf returns the token subject, which is the only requester a
// caller may act for. A differing requesterId in the body is forbidden.
func requesterOf(w http.ResponseWriter, r *http.Request, fromBody string) (string, bool) {
	subject := SubjectFromContext(r.Context())
	if subject == "" {
		writeError(w, http.StatusUnauthorized, "missing subject")
		return "", false
	}
	if fromBody != "" && fromBody != subject {
		writeError(w, http.StatusForbidden, "requesterId does not match token subject")
		return "", false
	}
	return subject, true
}

// statusOf maps an indexer error to a response status and message.
func (h *handlers) statusOf(r *http.Request, err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, twitter.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, credential.ErrRefreshDesynced):
		return http.StatusConflict, err.Error()
	case errors.Is(err, timeline.ErrInvalidPageSize), errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest, err.Error()
	case isUpstream(err):
		return http.StatusBadGateway, err.Error()
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError, "internal error"
	}
}

func isUpstream(err error) bool {
	var httpErr *twitter.HTTPError
	return errors.As(err, &httpErr) || errors.Is(err, twitter.ErrMalformedPage)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
