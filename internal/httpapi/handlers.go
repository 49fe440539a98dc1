package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/buildinfo"
	"github.com/jheling/blockwork/pkg/errors"
	blockio "github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/store"
)

// maxBodyBytes caps request bodies; workspace XML documents are small.
const maxBodyBytes = 4 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type definitionsResponse struct {
	Definitions []string `json:"definitions"`
}

type validateResponse struct {
	Valid         bool   `json:"valid"`
	BlockCount    int    `json:"block_count"`
	TopLevelCount int    `json:"top_level_count"`
	Error         string `json:"error,omitempty"`
	Code          string `json:"code,omitempty"`
}

type createSnapshotRequest struct {
	Name        string `json:"name"`
	WorkspaceID string `json:"workspace_id"`
	XML         string `json:"xml"`
}

// snapshotSummary is a listing entry: everything but the XML payload.
type snapshotSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	WorkspaceID string    `json:"workspace_id"`
	BlockCount  int       `json:"block_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listSnapshotsResponse struct {
	Snapshots []snapshotSummary `json:"snapshots"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: buildinfo.Version,
	})
}

func (s *Server) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, definitionsResponse{
		Definitions: s.factory.BlockNames(),
	})
}

// handleValidate parses the request body as workspace XML. A document that
// fails to parse is a successful validation with Valid=false, not an HTTP
// error.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			errors.Wrap(errors.ErrCodeInvalidArgument, err, "read request body"))
		return
	}

	ws, err := blockio.ReadWorkspace(bytes.NewReader(body), s.factory)
	if err != nil {
		s.writeJSON(w, http.StatusOK, validateResponse{
			Valid: false,
			Error: errors.UserMessage(err),
			Code:  string(errors.GetCode(err)),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, validateResponse{
		Valid:         true,
		BlockCount:    len(ws.AllBlocks()),
		TopLevelCount: len(ws.TopLevelBlocks()),
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := listSnapshotsResponse{Snapshots: make([]snapshotSummary, 0, len(snaps))}
	for _, snap := range snaps {
		out.Snapshots = append(out.Snapshots, snapshotSummary{
			ID:          snap.ID,
			Name:        snap.Name,
			WorkspaceID: snap.WorkspaceID,
			BlockCount:  snap.BlockCount,
			CreatedAt:   snap.CreatedAt,
			UpdatedAt:   snap.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req createSnapshotRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest,
			errors.Wrap(errors.ErrCodeInvalidArgument, err, "decode request body"))
		return
	}
	if req.XML == "" {
		s.writeError(w, http.StatusBadRequest,
			errors.New(errors.ErrCodeInvalidArgument, "xml is required"))
		return
	}

	// Parse before storing so the store never holds an unloadable document.
	ws, err := blockio.ReadWorkspace(strings.NewReader(req.XML), s.factory)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = ws.UUID()
	}
	snap := &store.Snapshot{
		ID:          uuid.New().String(),
		Name:        req.Name,
		WorkspaceID: workspaceID,
		XML:         req.XML,
		BlockCount:  len(ws.AllBlocks()),
	}
	if err := s.store.Put(r.Context(), snap); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("snapshot created", "id", snap.ID, "blocks", snap.BlockCount)
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if store.IsNotFound(err) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
