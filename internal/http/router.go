package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterVitalsRoutes 注册读数接入与查询路由
func (r *Router) RegisterVitalsRoutes(v *VitalsHandler) {
	// ingest + history
	r.Handle("/vitals/api/v1/readings", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			v.PostReading(w, req)
		case http.MethodGet:
			v.ListReadings(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// patients/{id}/latest
	r.Handle("/vitals/api/v1/patients/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/vitals/api/v1/patients/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "latest" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		v.GetLatest(w, req, parts[0])
	})

	// report export
	r.Handle("/vitals/api/v1/reports/readings.xlsx", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v.ExportReadings(w, req)
	})

	// liveness
	r.Handle("/vitals/api/v1/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}

// RegisterNotificationRoutes 注册通知查询路由
func (r *Router) RegisterNotificationRoutes(n *NotificationsHandler) {
	r.Handle("/vitals/api/v1/notifications", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		n.ListNotifications(w, req)
	})

	// notifications/{id}/read
	r.Handle("/vitals/api/v1/notifications/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/vitals/api/v1/notifications/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n.MarkRead(w, req, parts[0])
	})
}
