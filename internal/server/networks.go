package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/deployconf/internal/credentials"
	"github.com/pendergraft/deployconf/internal/middleware/realip"
	"github.com/pendergraft/deployconf/internal/netconfig"
	"github.com/pendergraft/deployconf/internal/observability/metrics"
	"github.com/pendergraft/deployconf/internal/storage"
)

// CompilerResponse is the body of GET /api/v1/compiler
type CompilerResponse struct {
	CompilerVersion string `json:"compilerVersion"`
}

// NetworkSummary is one entry of GET /api/v1/networks
type NetworkSummary struct {
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NetworkListResponse is the body of GET /api/v1/networks
type NetworkListResponse struct {
	CompilerVersion string           `json:"compilerVersion"`
	Networks        []NetworkSummary `json:"networks"`
}

// NetworkResponse is a resolved profile. Account references are masked.
type NetworkResponse struct {
	CompilerVersion string   `json:"compilerVersion"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Accounts        []string `json:"accounts"`
	ChainID         int      `json:"chainId,omitempty"`
}

// SnapshotResponse describes a stored config snapshot
type SnapshotResponse struct {
	ID              string   `json:"id"`
	ContentHash     string   `json:"contentHash"`
	CompilerVersion string   `json:"compilerVersion"`
	Networks        []string `json:"networks"`
	Source          string   `json:"source,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	Current         bool     `json:"current"`
}

// ResolutionResponse is one audit log entry
type ResolutionResponse struct {
	ID         string `json:"id"`
	SnapshotID string `json:"snapshotId,omitempty"`
	Network    string `json:"network"`
	ClientIP   string `json:"clientIp,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func (s *Server) handleCompiler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CompilerResponse{CompilerVersion: s.networks.CompilerVersion()})
}

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	failures := s.networks.ValidateAll()

	names := s.networks.Names()
	summaries := make([]NetworkSummary, 0, len(names))
	for _, name := range names {
		summary := NetworkSummary{Name: name, Valid: true}
		if err, ok := failures[name]; ok {
			summary.Valid = false
			summary.Reason = reasonOf(err)
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, NetworkListResponse{
		CompilerVersion: s.networks.CompilerVersion(),
		Networks:        summaries,
	})
}

func (s *Server) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	profile, err := s.networks.ResolveNetwork(name)
	if err != nil {
		var unknown *netconfig.UnknownNetworkError
		switch {
		case errors.As(err, &unknown):
			metrics.NetworkResolve(metrics.ResultUnknownNetwork)
			msg := fmt.Sprintf("network %q is not configured", name)
			if len(unknown.Available) > 0 {
				msg += "; available: " + strings.Join(unknown.Available, ", ")
			}
			writeError(w, http.StatusNotFound, "UNKNOWN_NETWORK", msg)
		case errors.Is(err, netconfig.ErrInvalidProfile):
			metrics.NetworkResolve(metrics.ResultInvalidProfile)
			writeError(w, http.StatusUnprocessableEntity, "INVALID_PROFILE", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to resolve network")
		}
		return
	}
	metrics.NetworkResolve(metrics.ResultOK)

	s.recordResolution(r, profile.Name)

	masked := make([]string, len(profile.Accounts))
	for i, ref := range profile.Accounts {
		masked[i] = credentials.MaskReference(ref)
	}

	writeJSON(w, http.StatusOK, NetworkResponse{
		CompilerVersion: s.networks.CompilerVersion(),
		Name:            profile.Name,
		URL:             profile.URL,
		Accounts:        masked,
		ChainID:         profile.ChainID,
	})
}

// recordResolution appends to the audit log. A failed write is logged and
// does not fail the request.
func (s *Server) recordResolution(r *http.Request, network string) {
	if s.store == nil {
		return
	}
	res := &storage.Resolution{
		SnapshotID: s.snapshotID,
		Network:    network,
		ClientIP:   realip.GetClientIP(r),
		RequestID:  middleware.GetReqID(r.Context()),
	}
	if err := s.store.RecordResolution(r.Context(), res); err != nil {
		s.logger.Warn("failed to record resolution",
			"network", network,
			"request_id", res.RequestID,
			"error", err,
		)
		return
	}
	s.logger.Debug("network resolved", "network", network, "resolution_id", res.ID)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	snapshots, err := s.store.ListSnapshots(r.Context(), queryInt(r, "limit"))
	if err != nil {
		s.logger.Error("listing snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list snapshots")
		return
	}

	resp := make([]SnapshotResponse, 0, len(snapshots))
	for _, snap := range snapshots {
		resp = append(resp, s.toSnapshotResponse(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	snap, err := s.store.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "snapshot not found")
		return
	}
	if err != nil {
		s.logger.Error("getting snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get snapshot")
		return
	}
	writeJSON(w, http.StatusOK, s.toSnapshotResponse(*snap))
}

func (s *Server) handleListResolutions(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	q := r.URL.Query()
	filter := storage.ResolutionFilter{
		Network:    q.Get("network"),
		SnapshotID: q.Get("snapshot"),
		Limit:      queryInt(r, "limit"),
	}

	resolutions, err := s.store.ListResolutions(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing resolutions", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list resolutions")
		return
	}

	resp := make([]ResolutionResponse, 0, len(resolutions))
	for _, res := range resolutions {
		resp = append(resp, ResolutionResponse{
			ID:         res.ID,
			SnapshotID: res.SnapshotID,
			Network:    res.Network,
			ClientIP:   res.ClientIP,
			RequestID:  res.RequestID,
			CreatedAt:  res.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "audit storage is not configured")
		return false
	}
	return true
}

func (s *Server) toSnapshotResponse(snap storage.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:              snap.ID,
		ContentHash:     snap.ContentHash,
		CompilerVersion: snap.CompilerVersion,
		Networks:        snap.Networks,
		Source:          snap.Source,
		CreatedAt:       snap.CreatedAt,
		Current:         snap.ID != "" && snap.ID == s.snapshotID,
	}
}

// reasonOf extracts the short reason from a validation failure
func reasonOf(err error) string {
	var pe *netconfig.ProfileError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return err.Error()
}

// queryInt returns 0 for a missing or malformed parameter
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
