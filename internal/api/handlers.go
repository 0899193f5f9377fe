package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/audit"
	"github.com/nerrad567/doorman/internal/device"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.devices.List()
	slices.SortFunc(devices, func(a, b device.Device) int {
		return strings.Compare(a.Address, b.Address)
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handleListApprovals(w http.ResponseWriter, _ *http.Request) {
	if s.approvals == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "approvals are not enabled")
		return
	}
	pending := s.approvals.Pending()
	writeJSON(w, http.StatusOK, map[string]any{
		"approvals": pending,
		"count":     len(pending),
	})
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	if s.approvals == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "approvals are not enabled")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	// An empty decision would parse as Deny; require it explicitly here.
	if strings.TrimSpace(req.Decision) == "" {
		writeBadRequest(w, "decision is required")
		return
	}
	result, err := access.ParseResult(req.Decision)
	if err != nil {
		writeBadRequest(w, "decision must be allow or deny")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.approvals.Decide(id, result); err != nil {
		if errors.Is(err, ErrApprovalNotFound) {
			writeNotFound(w, "approval not found or already resolved")
			return
		}
		writeInternalError(w, "deciding approval")
		return
	}

	operator := ""
	if claims := claimsFrom(r.Context()); claims != nil {
		operator = claims.Subject
	}
	s.logger.Info("approval decided", "request_id", id, "result", result.String(), "operator", operator)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "decision": result.String()})
}

func (s *Server) handleLockStatus(w http.ResponseWriter, _ *http.Request) {
	if s.locker == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "lock endpoint is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.locker.Status())
}

type lockRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	if s.locker == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "lock endpoint is not enabled")
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action != "lock" {
		writeBadRequest(w, `body must be {"action":"lock"}`)
		return
	}

	if err := s.locker.Lock(); err != nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "locking"})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail is not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{Kind: q.Get("kind"), Device: q.Get("device")}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}
	if v := q.Get("since"); v != "" {
		if filter.Since, err = time.Parse(time.RFC3339, v); err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing access events", "error", err)
		writeInternalError(w, "listing access events")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
