// Package httpapi serves the eye controls, state snapshot, metrics and the
// MCP endpoint over HTTP.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/animator"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/eyetools"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/tools/toolbox"
)

// maxBodyBytes bounds JSON request bodies. Subtitles are truncated at 800
// bytes anyway.
const maxBodyBytes = 64 << 10

// Eye reports the current animation state and how many screen commands
// were dropped.
type Eye interface {
	Snapshot() animator.Snapshot
	Dropped() uint64
}

// Options configures NewMux. Eye and Tools are required.
type Options struct {
	Eye   Eye
	Tools *toolbox.ToolBox

	// Registry backs /metrics and receives the HTTP request metrics. When
	// nil, /metrics is not mounted.
	Registry *prometheus.Registry

	// MCP is mounted at /mcp when non-nil.
	MCP http.Handler

	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string

	Logger *slog.Logger
}

// NewMux builds the router.
func NewMux(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
			MaxAge:         300,
		}))
	}
	if opts.Registry != nil {
		r.Use(newHTTPMetrics(opts.Registry).middleware)
	}

	h := &handlers{eye: opts.Eye, tools: opts.Tools, log: log}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/eye", h.snapshot)
		r.Put("/eye/state", h.call(eyetools.StateTool, true))
		r.Post("/eye/open", h.call(eyetools.OpenTool, false))
		r.Post("/eye/close", h.call(eyetools.CloseTool, false))
		r.Post("/subtitle", h.call(eyetools.SubtitleTool, true))
		r.Get("/tools", h.listTools)
		r.Post("/tools/{name}", h.callNamed)
	})

	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

type handlers struct {
	eye   Eye
	tools *toolbox.ToolBox
	log   *slog.Logger
}

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type eyeStatus struct {
	animator.Snapshot
	DroppedCommands uint64 `json:"dropped_commands"`
}

func (h *handlers) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, eyeStatus{Snapshot: h.eye.Snapshot(), DroppedCommands: h.eye.Dropped()})
}

func (h *handlers) listTools(w http.ResponseWriter, _ *http.Request) {
	tools := h.tools.Tools()
	out := make([]toolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (h *handlers) callNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.tools.Get(name); !ok {
		writeJSONError(w, http.StatusNotFound, "tool not found: "+name)
		return
	}

	h.call(name, true)(w, r)
}

// call returns a handler that invokes the named tool with the request body.
func (h *handlers) call(name string, withBody bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := json.RawMessage("{}")
		if withBody {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			input = raw
		}

		res := h.tools.Call(r.Context(), name, input)
		if res.IsError {
			h.log.WarnContext(r.Context(), "tool call failed", "tool", name, "error", res.Content)
			writeJSONError(w, http.StatusBadRequest, res.Content)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"result": res.Content, "eye": h.eye.Snapshot()})
	}
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.DebugContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"dur", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
