package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"topicspin-api/internal/config"
	"topicspin-api/internal/stream"
	"topicspin-api/internal/telemetry"
	jwtx "topicspin-api/pkg/jwt"
)

// Deps are the services the router exposes. Issuer may be nil, which
// disables admin login.
type Deps struct {
	Assigner Assigner
	Topics   Topics
	Finder   Finder
	Admin    AdminService
	Feed     stream.Source
	Hub      *stream.Hub
	Issuer   *jwtx.Issuer
	Ready    func(ctx context.Context) error
}

func Router(cfg *config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer, RequestID, SecureHeaders, Logger, Rate(300, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
	}))

	val := jwtx.New(cfg.JWTKeys, cfg.Skew)
	pub := &api{
		assigner: d.Assigner,
		topics:   d.Topics,
		finder:   d.Finder,
		rooms:    cfg.Rooms,
		validate: newValidator(),
	}
	creds := Credentials{
		User:       cfg.AdminUser,
		Passphrase: cfg.AdminPassphrase,
		Hash:       cfg.AdminPassphraseHash,
	}
	adm := &adminAPI{svc: d.Admin, creds: creds, issuer: d.Issuer, now: time.Now}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				WriteError(w, http.StatusServiceUnavailable, CodeStoreUnavailable, err.Error())
				return
			}
		}
		w.Write([]byte("ok"))
	})

	r.Group(func(g chi.Router) {
		g.Use(BasicAuth(cfg.MetricsUser, cfg.MetricsPass))
		g.Method("GET", "/metrics", promhttp.Handler())
	})

	r.Group(func(g chi.Router) {
		g.Use(BodyLimit(16 << 10))
		g.Get("/api/options", pub.options)
		g.Get("/api/topics/available", pub.available)
		g.Get("/api/assignments/{employeeId}", pub.lookup)
		g.Post("/api/assignments", pub.submit)
	})

	r.With(BodyLimit(4<<10), Rate(10, time.Minute)).Post("/api/admin/login", adm.login)

	r.Group(func(g chi.Router) {
		g.Use(Auth(false, val))
		g.Get("/api/admin/assignments", adm.list)
		g.Get("/api/admin/stats", adm.stats)
		g.Get("/api/admin/export.csv", adm.exportCSV)
		g.Get("/api/admin/export.xlsx", adm.exportXLSX)
		g.Delete("/api/admin/assignments/{id}", adm.remove)
		g.Delete("/api/admin/assignments", adm.clear)
		g.Get("/api/admin/stream", stream.SSE(d.Feed, d.Hub, cfg.Rooms))
	})

	r.Get("/api/admin/ws", WS(cfg.AllowedOrigins, d.Feed, d.Hub, cfg.Rooms, val))

	r.Group(func(g chi.Router) {
		g.Use(Auth(true, val), BodyLimit(64<<10), Rate(60, time.Minute))
		g.Post("/api/telemetry", telemetry.Handle)
	})

	return r
}
