package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/logger"
	"github.com/koustreak/fkguard/internal/schema"
)

type statementRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

type diagnosisResponse struct {
	Statement   string               `json:"statement"`
	Kind        string               `json:"kind"`
	Table       string               `json:"table,omitempty"`
	Violations  []fkcheck.Violation  `json:"violations"`
	ForeignKeys []fkcheck.ForeignKey `json:"foreign_keys,omitempty"`
	Message     string               `json:"message,omitempty"`
}

type execResponse struct {
	RowsAffected int64 `json:"rows_affected"`
	LastInsertID int64 `json:"last_insert_id,omitempty"`
}

type conflictResponse struct {
	Error     string            `json:"error"`
	Diagnosis diagnosisResponse `json:"diagnosis"`
}

type errorResponse struct {
	Error string       `json:"error"`
	Kind  errs.ErrKind `json:"kind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		writeError(w, r, errs.Wrap(errs.ErrKindConnectionFailed, "database unreachable", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	req, err := decodeStatement(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	d := s.guard.Diagnoser().Diagnose(ctx, req.SQL, req.Args)
	writeJSON(w, http.StatusOK, toResponse(d))
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	req, err := decodeStatement(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	res, err := s.guard.Exec(ctx, req.SQL, req.Args...)
	if err != nil {
		var fkErr *fkcheck.Error
		if errors.As(err, &fkErr) {
			writeJSON(w, http.StatusConflict, conflictResponse{
				Error:     fkErr.Error(),
				Diagnosis: toResponse(fkErr.Diagnosis),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, execResponse{RowsAffected: res.RowsAffected, LastInsertID: res.LastInsertID})
}

func (s *Server) handleForeignKeys(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	ti, err := schema.InspectTable(ctx, s.guard.Catalog(), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ti)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	info, err := schema.Inspect(ctx, s.guard.Catalog())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "report archive is disabled"))
		return
	}
	key := "reports/" + chi.URLParam(r, "*")

	report, err := s.store.Get(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- helpers ---

// decodeStatement reads a statement request. Integral JSON numbers become
// int64 so they bind as integers rather than floats.
func decodeStatement(r *http.Request) (*statementRequest, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var req statementRequest
	if err := dec.Decode(&req); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON body", err)
	}
	if strings.TrimSpace(req.SQL) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "sql must not be empty")
	}
	for i, a := range req.Args {
		v, err := normalizeArg(a)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("args[%d]", i), err)
		}
		req.Args[i] = v
	}
	return &req, nil
}

func normalizeArg(a any) (any, error) {
	switch v := a.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Errorf("number %s out of range", v)
		}
		return f, nil
	case nil, string, bool:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", a)
	}
}

func toResponse(d *fkcheck.Diagnosis) diagnosisResponse {
	return diagnosisResponse{
		Statement:   d.Statement,
		Kind:        d.Kind.String(),
		Table:       d.Table,
		Violations:  nonNil(d.Violations),
		ForeignKeys: d.ForeignKeys,
		Message:     d.Message(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidInput, errs.ErrKindQueryFailed:
		return http.StatusBadRequest
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConstraintViolation:
		return http.StatusConflict
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, map[string]any{"path": r.URL.Path})
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: errs.KindOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
