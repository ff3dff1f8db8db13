package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const patientsPath = "/api/v1/patients"

// Router 使用标准库 http.ServeMux
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

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterPatientRoutes 患者与采样相关路由
func (r *Router) RegisterPatientRoutes(p *PatientHandler) {
	// list / add
	r.Handle(patientsPath, func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			p.ListPatients(w, req)
		case http.MethodPost:
			p.AddPatient(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// {id} 与 {id}/{action}
	r.Handle(patientsPath+"/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, patientsPath+"/")
		parts := strings.Split(rest, "/")
		if parts[0] == "" || len(parts) > 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		id := parts[0]

		action := ""
		if len(parts) == 2 {
			action = parts[1]
		}

		method := http.MethodGet
		if action == "vitals" && req.Method == http.MethodPost {
			method = http.MethodPost
		}
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		switch action {
		case "":
			p.GetPatient(w, req, id)
		case "vitals":
			if method == http.MethodPost {
				p.AppendVitals(w, req, id)
			} else {
				p.GetVitals(w, req, id)
			}
		case "averages":
			p.GetAverages(w, req, id)
		case "alarms":
			p.GetAlarms(w, req, id)
		case "export":
			p.ExportHistory(w, req, id)
		case "live":
			p.Live(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterAIRoutes AI 问答路由
func (r *Router) RegisterAIRoutes(a *AIHandler) {
	r.Handle("/api/v1/ai/ask", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.Ask(w, req)
	})
}
