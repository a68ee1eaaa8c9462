package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/MixinNetwork/telemetry/server"
	"github.com/dimfeld/httptreemux"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"
)

type R struct {
	Server *server.Server
}

type Call struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func NewRouter(srv *server.Server) *httptreemux.TreeMux {
	router, impl := httptreemux.New(), &R{Server: srv}
	router.POST("/", impl.handle)
	metrics := promhttp.HandlerFor(NewRegistry(srv), promhttp.HandlerOpts{})
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		metrics.ServeHTTP(w, r)
	})
	registerHandlers(router)
	return router
}

func NewServer(srv *server.Server, port int) *http.Server {
	handler := handleCORS(NewRouter(srv))
	handler = handlers.ProxyHeaders(handler)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerHandlers(router *httptreemux.TreeMux) {
	router.MethodNotAllowedHandler = func(w http.ResponseWriter, r *http.Request, _ map[string]httptreemux.HandlerFunc) {
		render.New().JSON(w, http.StatusNotFound, map[string]any{})
	}
	router.NotFoundHandler = func(w http.ResponseWriter, r *http.Request) {
		render.New().JSON(w, http.StatusNotFound, map[string]any{})
	}
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, rcv any) {
		err := fmt.Errorf("%v\n%s", rcv, debug.Stack())
		render.New().JSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (impl *R) handle(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var call Call
	d := json.NewDecoder(r.Body)
	d.UseNumber()
	if err := d.Decode(&call); err != nil {
		render.New().JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	switch call.Method {
	case "getinfo":
		render.New().JSON(w, http.StatusOK, map[string]any{"data": getInfo(impl.Server)})
	case "getmetric":
		render.New().JSON(w, http.StatusOK, map[string]any{"data": impl.Server.Metric().Snapshot()})
	default:
		render.New().JSON(w, http.StatusNotFound, map[string]any{"error": fmt.Sprintf("invalid method %s", call.Method)})
	}
}

func handleCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS,GET,POST")
		w.Header().Set("Access-Control-Max-Age", "600")
		if r.Method == "OPTIONS" {
			render.New().JSON(w, http.StatusOK, map[string]any{})
		} else {
			handler.ServeHTTP(w, r)
		}
	})
}
