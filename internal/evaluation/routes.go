package evaluation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteOptions carries the middleware applied to each route group.
type RouteOptions struct {
	Run   []func(http.Handler) http.Handler
	Admin []func(http.Handler) http.Handler
}

// Mount registers the evaluation and admin routes on r, normally the /api/v1 router.
func Mount(r chi.Router, svc *Service, opts RouteOptions) {
	h := &Handler{Svc: svc}
	admin := &AdminHandler{Svc: svc}

	r.Route("/discounts", func(d chi.Router) {
		d.Get("/fixed/rule", h.FixedRule)
		d.Group(func(run chi.Router) {
			run.Use(opts.Run...)
			run.Post("/fixed/run", h.RunFixed)
			run.Post("/tiered/run", h.RunTiered)
			run.Post("/{discountID}/run", h.RunStored)
		})
	})

	r.Route("/admin/discounts/{discountID}/configuration", func(a chi.Router) {
		a.Use(opts.Admin...)
		a.Put("/", admin.PutConfiguration)
		a.Get("/", admin.GetConfiguration)
		a.Delete("/", admin.DeleteConfiguration)
	})
}
