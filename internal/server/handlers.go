package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/oracle"
	"github.com/koustreak/datri-oracle/internal/schema"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if _, err := s.eng.CurrentUser(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSchemas(w http.ResponseWriter, r *http.Request) {
	names, err := s.eng.ListSchemas(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": names})
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.eng.ListTables(r.Context(), r.URL.Query().Get("schema"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": tables})
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.eng.ListViews(r.Context(), r.URL.Query().Get("schema"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": views})
}

func (s *Server) listConstraints(w http.ResponseWriter, r *http.Request) {
	var schemas []string
	if v := r.URL.Query().Get("schema"); v != "" {
		schemas = strings.Split(v, ",")
	}
	cs, err := s.eng.ListConstraints(r.Context(), schemas...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": cs.All()})
}

func (s *Server) describeTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.eng.DescribeTable(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t.ToMap())
}

// listRecords maps query parameters onto oracle.ListOptions. Free-form
// filters are not accepted over HTTP.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := oracle.ListOptions{
		Order:        q.Get("order"),
		Group:        q.Get("group"),
		IncludeCount: truthy(q.Get("include_count")),
		CountOnly:    truthy(q.Get("count_only")),
	}
	if f := q.Get("fields"); f != "" {
		opts.Fields = strings.Split(f, ",")
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		s.fail(w, r, err)
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.reader.List(r.Context(), chi.URLParam(r, "name"), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listRoutines(w http.ResponseWriter, r *http.Request) {
	kind, err := routineKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.eng.ListRoutines(r.Context(), kind, r.URL.Query().Get("schema"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource": list})
}

func (s *Server) describeRoutine(w http.ResponseWriter, r *http.Request) {
	kind, err := routineKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	routine, err := s.eng.DescribeRoutine(r.Context(), kind, chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

// routineKind accepts "procedures", "procedure", "functions" or "function".
func routineKind(s string) (schema.RoutineKind, error) {
	switch strings.TrimSuffix(strings.ToLower(s), "s") {
	case "procedure":
		return schema.KindProcedure, nil
	case "function":
		return schema.KindFunction, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown routine kind %q", s)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errs.Newf(errs.ErrKindInvalidInput, "invalid non-negative integer %q", v)
	}
	return n, nil
}

func truthy(v string) bool { return schema.Truthy(v) }

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"path": r.URL.Path})
	}
	writeJSON(w, status, map[string]errorBody{"error": {
		Kind:    errs.KindOf(err).String(),
		Message: err.Error(),
		Code:    errs.CodeOf(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
