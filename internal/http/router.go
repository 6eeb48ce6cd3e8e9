package http

import (
	"net/http"
)

type RouterConfig struct {
	Events       *EventHandler
	Invitations  *InvitationHandler
	Applications *ApplicationHandler
	// Admin guards the /api/admin routes. Admin routes are not mounted
	// without it.
	Admin      func(http.Handler) http.Handler
	Metrics    http.Handler
	Recordings http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.Recordings != nil {
		mux.Handle("GET /recordings/", http.StripPrefix("/recordings/", cfg.Recordings))
	}

	admin := func(h http.HandlerFunc) http.Handler {
		return cfg.Admin(h)
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /api/events/upcoming", cfg.Events.Upcoming)
		mux.HandleFunc("GET /api/events/past", cfg.Events.Past)
		mux.HandleFunc("GET /api/events/{date}/{warmup}", cfg.Events.Get)
		mux.HandleFunc("GET /api/applications/slots", cfg.Events.WarmupSlots)
		if cfg.Admin != nil {
			mux.Handle("GET /api/admin/events", admin(cfg.Events.Bookings))
			mux.Handle("POST /api/admin/events/{date}/{warmup}/{channel}", admin(cfg.Events.Rerun))
		}
	}

	if cfg.Invitations != nil {
		mux.HandleFunc("GET /api/invitations/{token}", cfg.Invitations.Availability)
		mux.HandleFunc("POST /api/invitations/{token}/confirm", cfg.Invitations.Confirm)
		if cfg.Admin != nil {
			mux.Handle("GET /api/admin/invitations", admin(cfg.Invitations.List))
			mux.Handle("POST /api/admin/invitations", admin(cfg.Invitations.Create))
		}
	}

	if cfg.Applications != nil {
		mux.HandleFunc("POST /api/applications", cfg.Applications.Submit)
		mux.HandleFunc("GET /api/applications/{token}", cfg.Applications.Availability)
		if cfg.Admin != nil {
			mux.Handle("GET /api/admin/applications", admin(cfg.Applications.Pending))
			mux.Handle("POST /api/admin/applications/{token}/accept", admin(cfg.Applications.Accept))
			mux.Handle("POST /api/admin/applications/{token}/decline", admin(cfg.Applications.Decline))
		}
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
