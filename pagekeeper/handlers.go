package pagekeeper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/offsite/kit"
	"github.com/hazyhaar/offsite/pagekeeper/internal/controller"
	"github.com/hazyhaar/offsite/pagekeeper/snapshot"
	"github.com/hazyhaar/offsite/shield"
)

// eventRequest is the body of POST /api/events.
type eventRequest struct {
	Kind string            `json:"kind"`
	Ref  *snapshot.NodeRef `json:"ref,omitempty"`
	Text string            `json:"text"`
	HTML string            `json:"html,omitempty"`
}

type accentRequest struct {
	Ref   snapshot.NodeRef `json:"ref"`
	Color string           `json:"color"`
}

// ParseTrigger maps a UI event kind (input, focusout, blur, enter,
// unload) to a Trigger.
func ParseTrigger(kind string) (Trigger, bool) {
	return controller.ParseTrigger(kind)
}

// Handler returns the HTTP surface for the UI layer.
func (k *Keeper) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	for _, mw := range shield.Stack(k.cfg.HTTP.MaxBodyBytes) {
		r.Use(mw)
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := kit.WithTransport(r.Context(), "http")
			ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		page, err := k.Render(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok", "state": k.State().String()})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/fields", func(w http.ResponseWriter, r *http.Request) {
			fields, err := k.Fields(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, fields)
		})

		r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
			var req eventRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			kind, ok := ParseTrigger(req.Kind)
			if !ok {
				writeError(w, 400, fmt.Errorf("unknown event kind %q", req.Kind))
				return
			}
			ev := Event{Kind: kind}
			if req.Ref != nil {
				ev.Edit = &Edit{Ref: *req.Ref, Text: req.Text, HTML: req.HTML}
			}
			if err := k.Dispatch(r.Context(), ev); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 202, map[string]string{"status": "accepted", "kind": string(kind)})
		})

		r.Post("/accent", func(w http.ResponseWriter, r *http.Request) {
			var req accentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
			if req.Color == "" {
				writeError(w, 400, errors.New("color is required"))
				return
			}
			res, err := k.SetAccent(r.Context(), req.Ref, req.Color)
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, res)
		})

		r.Post("/save", func(w http.ResponseWriter, r *http.Request) {
			res, err := k.SaveNow(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, res)
		})

		r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
			res, err := k.LoadAll(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, res)
		})

		r.Get("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
			d, err := k.RunDiagnostics(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			code := 200
			if !d.OK {
				code = 500
			}
			writeJSON(w, code, d)
		})

		r.Get("/snapshot", func(w http.ResponseWriter, r *http.Request) {
			snap, err := k.CurrentSnapshot(r.Context())
			if err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, 200, snap)
		})

		r.Get("/notices", func(w http.ResponseWriter, _ *http.Request) {
			notices := k.Notices()
			if notices == nil {
				notices = []Notice{}
			}
			writeJSON(w, 200, notices)
		})
	})

	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrNoSnapshot):
		return 404
	case errors.Is(err, ErrQuotaExceeded):
		return 507
	case errors.Is(err, ErrStopped), errors.Is(err, ErrNotStarted):
		return 503
	default:
		return 500
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
