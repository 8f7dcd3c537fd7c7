package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter 创建路由器
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

// RegisterMonitorRoutes 注册监护路由
func (r *Router) RegisterMonitorRoutes(h *MonitorHandler, hub *Hub) {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Health(w, req)
	})

	r.Handle("/api/v1/vitals", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostVitals(w, req)
	})

	r.Handle("/api/v1/patients", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListPatients(w, req)
	})

	// patients/{id} 与 patients/{id}/alerts
	r.Handle("/api/v1/patients/", func(w http.ResponseWriter, req *http.Request) {
		patientID, rest := patientIDFromPath(req.URL.Path, "/api/v1/patients/")
		if patientID == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch {
		case rest == "" && req.Method == http.MethodGet:
			h.GetPatient(w, req, patientID)
		case rest == "" && req.Method == http.MethodDelete:
			h.EndSession(w, req, patientID)
		case rest == "alerts" && req.Method == http.MethodGet:
			h.GetPatientAlerts(w, req, patientID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle("/ws/updates", hub.HandleWS)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
