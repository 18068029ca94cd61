package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Brushlog/internal/adherence"
	"github.com/soaringjerry/Brushlog/internal/api"
	"github.com/soaringjerry/Brushlog/internal/config"
	dbstore "github.com/soaringjerry/Brushlog/internal/db"
	"github.com/soaringjerry/Brushlog/internal/logger"
	"github.com/soaringjerry/Brushlog/internal/middleware"
	"github.com/soaringjerry/Brushlog/internal/recommend"
	"github.com/soaringjerry/Brushlog/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" && cfg.AuthEnabled() {
		log.Warn("BRUSHLOG_JWT_SECRET not set, using development secret")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid timezone", "error", err)
	}
	tree, err := recommend.LoadTreeFile(cfg.RulesPath)
	if err != nil {
		log.Fatal("load recommendation rules", "path", cfg.RulesPath, "error", err)
	}

	store, closeStore := openStore(cfg, log)
	defer closeStore()

	rt, err := api.NewRouter(store, api.Options{
		Engine:   recommend.NewEngine(tree),
		Analyzer: adherence.NewAnalyzer(adherence.WithLocation(loc)),
		Passcode: cfg.Passcode,
		Tokens:   middleware.NewTokenAuth(cfg.JWTSecret),
		Logger:   log,
	})
	if err != nil {
		log.Fatal("init router", "error", err)
	}

	mux := http.NewServeMux()
	rt.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Brushlog API",
			"locale":     locale,
			"msg":        utils.T(locale, "health.ok"),
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     cfg.Commit,
			"build_time": cfg.BuildTime,
		})
	})

	// Frontend: static files win over the dev proxy.
	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	} else if cfg.DevFrontend != "" {
		if u, err := url.Parse(cfg.DevFrontend); err == nil {
			mux.Handle("/", httputil.NewSingleHostReverseProxy(u))
		} else {
			log.Warn("invalid BRUSHLOG_DEV_FRONTEND_URL", "value", cfg.DevFrontend, "error", err)
		}
	}

	handler := middleware.CORS(middleware.SecureHeaders(middleware.NoStore(middleware.LocaleMiddleware(mux))))

	log.Info("brushlog server listening", "addr", cfg.Addr, "auth", cfg.AuthEnabled(), "timezone", loc.String())
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server error", "error", err)
	}
}

// openStore picks SQLite unless the path is ":memory:", which keeps the
// clinic in process memory only.
func openStore(cfg config.Config, log *logger.Logger) (api.Store, func()) {
	if cfg.DBPath == ":memory:" {
		log.Warn("running with in-memory store, data is lost on exit")
		return api.NewMemoryStore(), func() {}
	}
	if err := MigrateIfNeeded(cfg.LegacyBundle, cfg.DBPath, cfg.MigrationsDir, log); err != nil {
		log.Fatal("legacy import failed", "error", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal("create data dir", "error", err)
	}
	sqlDB, err := sql.Open("sqlite3", dbstore.DSN(cfg.DBPath))
	if err != nil {
		log.Fatal("open sqlite", "error", err)
	}
	applied, err := dbstore.RunMigrations(sqlDB, cfg.MigrationsDir)
	if err != nil {
		log.Fatal("run migrations", "error", err)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "names", applied)
	}
	store, err := dbstore.NewStore(sqlDB, log)
	if err != nil {
		log.Fatal("init sqlite store", "error", err)
	}
	return store, func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("close sqlite", "error", err)
		}
	}
}
