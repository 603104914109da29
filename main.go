package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// App wires the query layer, session store, metrics and logger
// together; all handlers hang off it.
type App struct {
	cfg     Config
	db      *DB
	store   *sessions.CookieStore
	log     *logrus.Logger
	metrics *Metrics
}

func newApp(cfg Config, logger *logrus.Logger, reg *prometheus.Registry) (*App, error) {
	conn, err := openDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	metrics := newMetrics(reg)
	db := newDB(conn, metrics)
	if err := db.Init(); err != nil {
		conn.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		db:      db,
		store:   newStore(cfg.SecretKey),
		log:     logger,
		metrics: metrics,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.instrument)

	fs := http.FileServer(http.Dir("static"))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/", a.timelineHandler).Methods("GET")
	r.HandleFunc("/public", a.publicTimelineHandler).Methods("GET")
	r.HandleFunc("/login", a.loginHandler).Methods("GET", "POST")
	r.HandleFunc("/register", a.registerHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", a.logoutHandler).Methods("GET")
	r.HandleFunc("/add_message", a.addMessageHandler).Methods("POST")
	r.HandleFunc("/{username}", a.userTimelineHandler).Methods("GET")
	r.HandleFunc("/{username}/follow", a.followHandler).Methods("GET")
	r.HandleFunc("/{username}/unfollow", a.unfollowHandler).Methods("GET")
	return r
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Debug("no .env file loaded")
	}
	cfg := loadConfig()

	app, err := newApp(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer app.Close()

	logger.WithField("addr", cfg.Addr).Info("listening")
	logger.Fatal(http.ListenAndServe(cfg.Addr, app.router()))
}
