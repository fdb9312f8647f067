package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/ir"
	"github.com/roach88/graphgate/internal/metrics"
	"github.com/roach88/graphgate/internal/pipeline"
	"github.com/roach88/graphgate/internal/testutil"
)

const scenario = `{ building(filter: {identifier: {eq: "123"}}) { identifier location { wkt } } }`

type response struct {
	Data   []pipeline.Output `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Locations  []any          `json:"locations"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) *Server {
	t.Helper()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	c := compiler.New(testutil.BuildingRegistry(),
		compiler.WithIDGenerator(compiler.NewFixedGenerator("c-1", "c-2", "c-3")))
	s, err := New(cfg, c, opts...)
	require.NoError(t, err)
	return s
}

func post(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/compile", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func compileBody(t *testing.T, req CompileRequest) string {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return string(data)
}

func TestNew_Validation(t *testing.T) {
	c := compiler.New(testutil.BuildingRegistry())

	_, err := New(Config{}, c)
	assert.Error(t, err)

	_, err = New(Config{ListenAddr: ":0"}, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCompile_SPARQL(t *testing.T) {
	s := newTestServer(t, Config{})
	rec, resp := post(t, s, compileBody(t, CompileRequest{Query: scenario}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "building", resp.Data[0].Field)
	assert.Equal(t, "c-1", resp.Data[0].CompileID)
	assert.Equal(t, pipeline.BackendSPARQL, resp.Data[0].Backend)
	assert.Contains(t, resp.Data[0].Query, `FILTER(?x1 = "123")`)
	assert.Empty(t, resp.Errors)
}

func TestCompile_SQLWithVariables(t *testing.T) {
	s := newTestServer(t, Config{})
	rec, resp := post(t, s, compileBody(t, CompileRequest{
		Query:         `query Find($id: String) { building(filter: {identifier: $id}) { identifier } }`,
		Variables:     json.RawMessage(`{"id": "456"}`),
		OperationName: "Find",
		Backend:       "sql",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, resp.Data, 1)
	assert.Equal(t, pipeline.BackendSQL, resp.Data[0].Backend)
	assert.Equal(t, []any{"456"}, resp.Data[0].Params)
}

func TestCompile_DefaultBackendFromConfig(t *testing.T) {
	s := newTestServer(t, Config{Backend: pipeline.BackendSQL})
	rec, resp := post(t, s, compileBody(t, CompileRequest{Query: scenario}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pipeline.BackendSQL, resp.Data[0].Backend)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		code      string
		errorCode string
	}{
		{"malformed body", `{"query":`, "BAD_REQUEST", ""},
		{"unknown backend", `{"query":"{ building { identifier } }","backend":"cypher"}`, "BAD_REQUEST", ""},
		{"empty query", `{"query":""}`, "BAD_REQUEST", ""},
		{"variables not an object", `{"query":"{ building { identifier } }","variables":[1]}`, "BAD_REQUEST", ""},
		{"unknown field", `{"query":"{ building { colour } }"}`, "SCHEMA_ERROR", ""},
		{"syntax", `{"query":"{ building {"}`, "UNSUPPORTED_OPERATION", "E200"},
		{"unknown argument", `{"query":"{ building(limit: 3) { identifier } }"}`, "UNSUPPORTED_OPERATION", "E202"},
		{"no relational form", `{"query":"{ building { street } }","backend":"sql"}`, "UNSUPPORTED_OPERATION", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, Config{})
			rec, resp := post(t, s, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, resp.Data)
			require.Len(t, resp.Errors, 1)
			assert.NotEmpty(t, resp.Errors[0].Message)
			assert.Equal(t, tt.code, resp.Errors[0].Extensions["code"])
			if tt.errorCode != "" {
				assert.Equal(t, tt.errorCode, resp.Errors[0].Extensions["errorCode"])
			}
		})
	}
}

func TestCompile_SyntaxErrorLocations(t *testing.T) {
	s := newTestServer(t, Config{})
	_, resp := post(t, s, `{"query":"{ building {"}`)

	require.Len(t, resp.Errors, 1)
	assert.NotEmpty(t, resp.Errors[0].Locations)
}

func TestCompile_LogsRequests(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	s := newTestServer(t, Config{}, WithLogger(log))

	post(t, s, compileBody(t, CompileRequest{Query: scenario}))
	post(t, s, `{"query":"{ building { colour } }"}`)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "compiled", entries[0].Message)
	assert.Equal(t, 1, entries[0].Data["fields"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, http.StatusBadRequest, entries[1].Data["status"])
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"schema", ir.NewSchemaError("", "", "x"), http.StatusBadRequest},
		{"unsupported", ir.NewUnsupportedOperation("", "", "x"), http.StatusBadRequest},
		{"mismatch", ir.NewTypeMismatch("", "", "x"), http.StatusBadRequest},
		{"constraint", ir.NewConstraintViolation("E101", "", "", "x"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", ir.NewSchemaError("", "", "x")), http.StatusBadRequest},
		{"untyped", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestToGQLError(t *testing.T) {
	gqlErr := toGQLError(ir.NewSchemaError("Building", "colour", "unknown field"))
	assert.Equal(t, "SCHEMA_ERROR", gqlErr.Extensions["code"])
	assert.Equal(t, "Building", gqlErr.Extensions["shape"])
	assert.Equal(t, "colour", gqlErr.Extensions["field"])

	internal := toGQLError(io.ErrUnexpectedEOF)
	assert.Equal(t, "INTERNAL", internal.Extensions["code"])
	assert.NotContains(t, internal.Message, "EOF")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)

	c := compiler.New(testutil.BuildingRegistry(), compiler.WithMetrics(collector))
	s, err := New(Config{ListenAddr: ":0"}, c, WithMetrics(collector, reg))
	require.NoError(t, err)

	post(t, s, compileBody(t, CompileRequest{Query: scenario}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `graphgate_http_requests_total{backend="sparql",status="200"} 1`)
	assert.Contains(t, body, `graphgate_compile_total{outcome="ok",root="Building"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	s := newTestServer(t, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/compile", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
