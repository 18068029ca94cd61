package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/soaringjerry/Brushlog/internal/adherence"
	"github.com/soaringjerry/Brushlog/internal/logger"
	"github.com/soaringjerry/Brushlog/internal/middleware"
	"github.com/soaringjerry/Brushlog/internal/models"
	"github.com/soaringjerry/Brushlog/internal/recommend"
	"github.com/soaringjerry/Brushlog/internal/services"
	"github.com/soaringjerry/Brushlog/internal/utils"
)

const maxBundleBytes = 32 << 20

// Options configures the router. Zero values fall back to the built-in
// questionnaire, a local-time analyzer, open access, the development token
// secret and a no-op logger.
type Options struct {
	Engine   *recommend.Engine
	Analyzer *adherence.Analyzer
	Passcode string
	Tokens   *middleware.TokenAuth
	Logger   *logger.Logger
}

type Router struct {
	store     Store
	log       *logger.Logger
	tokens    *middleware.TokenAuth
	patients  *services.PatientService
	logs      *services.BrushLogService
	intake    *services.IntakeService
	analytics *services.AnalyticsService
	bundles   *services.BundleService
	auth      *services.AuthService
}

func NewRouter(store Store, opts Options) (*Router, error) {
	if store == nil {
		store = newMemoryStore()
	}
	eng := opts.Engine
	if eng == nil {
		var err error
		if eng, err = recommend.DefaultEngine(); err != nil {
			return nil, err
		}
	}
	if opts.Tokens == nil {
		opts.Tokens = middleware.NewTokenAuth("")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Analyzer == nil {
		opts.Analyzer = adherence.NewAnalyzer()
	}
	auth, err := services.NewAuthService(opts.Passcode, opts.Tokens.Sign)
	if err != nil {
		return nil, err
	}
	return &Router{
		store:     store,
		log:       opts.Logger.With("component", "api"),
		tokens:    opts.Tokens,
		patients:  services.NewPatientService(store),
		logs:      services.NewBrushLogService(store),
		intake:    services.NewIntakeService(eng, store),
		analytics: services.NewAnalyticsService(store, opts.Analyzer),
		bundles:   services.NewBundleService(store, opts.Analyzer),
		auth:      auth,
	}, nil
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", rt.handleLogin)
	mux.HandleFunc("GET /api/auth/status", rt.handleAuthStatus)

	mux.HandleFunc("GET /api/intake/questions/{id}", rt.handleQuestion)
	mux.HandleFunc("GET /api/intake/disclaimer", rt.handleDisclaimer)
	mux.HandleFunc("POST /api/intake/step", rt.handleIntakeStep)

	mux.Handle("GET /api/patients", rt.protect(rt.handleRoster))
	mux.Handle("POST /api/patients", rt.protect(rt.handleCreatePatient))
	mux.Handle("GET /api/patients/{id}", rt.protect(rt.handleGetPatient))
	mux.Handle("PATCH /api/patients/{id}", rt.protect(rt.handleUpdatePatient))
	mux.Handle("DELETE /api/patients/{id}", rt.protect(rt.handleDeletePatient))
	mux.Handle("GET /api/patients/{id}/logs", rt.protect(rt.handleListLogs))
	mux.Handle("POST /api/patients/{id}/logs", rt.protect(rt.handleAddLog))
	mux.Handle("GET /api/patients/{id}/metrics", rt.protect(rt.handleMetrics))
	mux.Handle("GET /api/patients/{id}/messages", rt.protect(rt.handleMessages))
	mux.Handle("POST /api/patients/{id}/intake", rt.protect(rt.handleApplyIntake))

	mux.Handle("GET /api/export", rt.protect(rt.handleExport))
	mux.Handle("GET /api/export/roster.csv", rt.protect(rt.handleRosterCSV))
	mux.Handle("POST /api/import", rt.protect(rt.handleImport))
	mux.Handle("POST /api/demo", rt.protect(rt.handleDemo))
	mux.Handle("GET /api/audit", rt.protect(rt.handleAudit))
}

func (rt *Router) protect(h http.HandlerFunc) http.Handler {
	return rt.tokens.WithAuth(middleware.RequireAuthIf(rt.auth.Enabled())(h))
}

func actorOf(r *http.Request) string {
	if sub, ok := middleware.SubjectFromContext(r.Context()); ok {
		return sub
	}
	return "local"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (rt *Router) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusBadRequest
		switch se.Code {
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": string(se.Code), "message": se.Message})
		return
	}
	rt.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "internal error"})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewInvalidError("request body required")
		}
		return services.NewInvalidError("invalid JSON: " + err.Error())
	}
	return nil
}

func windowParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("window"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, services.NewInvalidError("window must be an integer")
	}
	if n == 0 {
		return 0, services.NewInvalidError("window must be between 1 and 365 days")
	}
	return n, nil
}

func rosterQuery(r *http.Request) (services.RosterQuery, error) {
	q := r.URL.Query()
	f, ok := adherence.ParseFilter(q.Get("filter"))
	if !ok {
		return services.RosterQuery{}, services.NewInvalidError("unknown filter")
	}
	key, ok := adherence.ParseSortKey(q.Get("sort"))
	if !ok {
		return services.RosterQuery{}, services.NewInvalidError("unknown sort key")
	}
	var desc bool
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return services.RosterQuery{}, services.NewInvalidError("order must be asc or desc")
	}
	window, err := windowParam(r)
	if err != nil {
		return services.RosterQuery{}, err
	}
	return services.RosterQuery{Filter: f, SortKey: key, Desc: desc, WindowDays: window}, nil
}

// POST /api/auth/login {passcode}
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passcode string `json:"passcode"`
	}
	if err := decodeBody(r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	res, err := rt.auth.Login(req.Passcode)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": rt.auth.Enabled()})
}

// GET /api/intake/questions/{id}?lang=
func (rt *Router) handleQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := rt.intake.Question(r.PathValue("id"), middleware.LocaleFromContext(r.Context()))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (rt *Router) handleDisclaimer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"disclaimer": rt.intake.Disclaimer(middleware.LocaleFromContext(r.Context()))})
}

// POST /api/intake/step {answers}
func (rt *Router) handleIntakeStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []models.QuestionAnswer `json:"answers"`
	}
	if err := decodeBody(r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	st, err := rt.intake.Step(middleware.LocaleFromContext(r.Context()), req.Answers)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /api/patients?filter=&sort=&order=&window=
func (rt *Router) handleRoster(w http.ResponseWriter, r *http.Request) {
	q, err := rosterQuery(r)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	rows, err := rt.analytics.Roster(q)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": rows, "count": len(rows)})
}

func (rt *Router) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var in services.PatientInput
	if err := decodeBody(r, &in); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	p, err := rt.patients.Create(in)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (rt *Router) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := rt.patients.Get(r.PathValue("id"))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *Router) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	p, err := rt.patients.Update(r.PathValue("id"), raw)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rt *Router) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := rt.patients.Delete(r.PathValue("id"), actorOf(r)); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleListLogs(w http.ResponseWriter, r *http.Request) {
	evs, err := rt.logs.ListByPatient(r.PathValue("id"))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": evs})
}

func (rt *Router) handleAddLog(w http.ResponseWriter, r *http.Request) {
	var in models.BrushEvent
	if err := decodeBody(r, &in); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	ev, err := rt.logs.Add(r.PathValue("id"), in)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GET /api/patients/{id}/metrics?window=
func (rt *Router) handleMetrics(w http.ResponseWriter, r *http.Request) {
	window, err := windowParam(r)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	m, err := rt.analytics.PatientMetrics(r.PathValue("id"), window)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (rt *Router) handleMessages(w http.ResponseWriter, r *http.Request) {
	ms, err := rt.patients.Messages(r.PathValue("id"))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": ms})
}

// POST /api/patients/{id}/intake {answers}
func (rt *Router) handleApplyIntake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []models.QuestionAnswer `json:"answers"`
	}
	if err := decodeBody(r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	lang := middleware.LocaleFromContext(r.Context())
	res, p, err := rt.intake.Apply(r.PathValue("id"), lang, req.Answers)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":     res,
		"patient":    p,
		"disclaimer": rt.intake.Disclaimer(lang),
	})
}

func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := rt.bundles.Export()
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	name := utils.T(middleware.LocaleFromContext(r.Context()), "export.filename")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	writeJSON(w, http.StatusOK, b)
}

func (rt *Router) handleRosterCSV(w http.ResponseWriter, r *http.Request) {
	q, err := rosterQuery(r)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	rows, err := rt.analytics.Roster(q)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	data, err := services.ExportRosterCSV(rows)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	name := utils.T(middleware.LocaleFromContext(r.Context()), "roster.csvfilename")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	_, _ = w.Write(data)
}

func (rt *Router) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBundleBytes))
	if err != nil {
		rt.writeServiceError(w, r, services.NewInvalidError("bundle too large or unreadable"))
		return
	}
	sum, err := rt.bundles.Import(data, actorOf(r))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	rt.log.Info("bundle imported", "patients", sum.Patients, "logs", sum.Logs, "actor", actorOf(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"summary": sum,
		"message": utils.T(middleware.LocaleFromContext(r.Context()), "import.done"),
	})
}

func (rt *Router) handleDemo(w http.ResponseWriter, r *http.Request) {
	sum, err := rt.bundles.GenerateDemo(actorOf(r))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	rt.log.Info("demo data generated", "patients", sum.Patients, "logs", sum.Logs)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"summary": sum,
		"message": utils.T(middleware.LocaleFromContext(r.Context()), "demo.done"),
	})
}

func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.store.ListAudit()
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
