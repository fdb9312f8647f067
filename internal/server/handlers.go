package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/pipeline"
)

// CompileRequest is the body of POST /v1/compile.
type CompileRequest struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	OperationName string          `json:"operationName,omitempty"`
	Backend       string          `json:"backend,omitempty"`
}

// CompileResponse carries either data or errors, GraphQL style.
type CompileResponse struct {
	Data   []pipeline.Output `json:"data,omitempty"`
	Errors gqlerror.List     `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithField("request_id", middleware.GetReqID(r.Context()))

	var req CompileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.fail(w, log, s.cfg.Backend, http.StatusBadRequest, badRequest("malformed request body: %v", err))
		return
	}

	backend := s.cfg.Backend
	if req.Backend != "" {
		b, err := pipeline.ParseBackend(req.Backend)
		if err != nil {
			s.fail(w, log, s.cfg.Backend, http.StatusBadRequest, badRequest("%v", err))
			return
		}
		backend = b
	}
	log = log.WithField("backend", backend)

	if req.Query == "" {
		s.fail(w, log, backend, http.StatusBadRequest, badRequest("query must not be empty"))
		return
	}
	vars, err := ir.UnmarshalVariables(req.Variables)
	if err != nil {
		s.fail(w, log, backend, http.StatusBadRequest, badRequest("%v", err))
		return
	}

	out, err := pipeline.Run(s.compiler, req.Query, req.OperationName, vars, backend)
	if err != nil {
		status := HTTPStatus(err)
		s.fail(w, log.WithError(err), backend, status, toGQLError(err))
		return
	}

	log.WithField("fields", len(out)).Info("compiled")
	s.observe(backend, http.StatusOK)
	writeJSON(w, http.StatusOK, CompileResponse{Data: out})
}

func (s *Server) fail(w http.ResponseWriter, log logrus.FieldLogger, backend pipeline.Backend, status int, gqlErr *gqlerror.Error) {
	entry := log.WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("compile request failed")
	} else {
		entry.Warn("compile request rejected")
	}
	s.observe(backend, status)
	writeJSON(w, status, CompileResponse{Errors: gqlerror.List{gqlErr}})
}

func (s *Server) observe(backend pipeline.Backend, status int) {
	if s.metrics != nil {
		s.metrics.ObserveRequest(string(backend), status)
	}
}

// HTTPStatus maps an error to a response status: 400 for errors caused by
// the request, 500 for everything else.
func HTTPStatus(err error) int {
	if ir.IsClientError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func badRequest(format string, args ...any) *gqlerror.Error {
	return &gqlerror.Error{
		Message: fmt.Sprintf(format, args...),
		Extensions: map[string]interface{}{
			"code": "BAD_REQUEST",
		},
	}
}

// toGQLError converts compile errors to GraphQL errors. The error kind
// becomes extensions.code; request error codes and locations are kept.
func toGQLError(err error) *gqlerror.Error {
	var e *ir.Error
	if !errors.As(err, &e) {
		return &gqlerror.Error{
			Message: "internal error",
			Extensions: map[string]interface{}{
				"code": "INTERNAL",
			},
		}
	}

	out := &gqlerror.Error{
		Message: e.Error(),
		Extensions: map[string]interface{}{
			"code": string(e.Kind),
		},
	}
	if e.Code != "" {
		out.Extensions["errorCode"] = e.Code
	}
	if e.Shape != "" {
		out.Extensions["shape"] = e.Shape
	}
	if e.Field != "" {
		out.Extensions["field"] = e.Field
	}

	var parseErr *gqlerror.Error
	if errors.As(e.Err, &parseErr) {
		out.Locations = parseErr.Locations
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
