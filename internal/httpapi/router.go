package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Menu     *MenuHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Register *RegisterHandler
	Balance  *BalanceHandler
	Hardware *HardwareHandler
	Receipts *ReceiptsHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/menu", h.Menu.ListItems)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{menu_item_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{menu_item_id}", h.Cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.Begin)
			r.Get("/", h.Checkout.State)
			r.Delete("/", h.Checkout.Cancel)
			r.Post("/retry", h.Checkout.Retry)
		})

		r.Route("/register", func(r chi.Router) {
			r.Post("/", h.Register.Submit)
			r.Get("/", h.Register.State)
			r.Post("/retry", h.Register.Retry)
			r.Post("/finish", h.Register.Finish)
		})

		r.Route("/balance", func(r chi.Router) {
			r.Post("/", h.Balance.Begin)
			r.Get("/", h.Balance.State)
			r.Delete("/", h.Balance.End)
		})

		r.Get("/receipts/{tag_id}", h.Receipts.ListByUser)

		r.Route("/hardware", func(r chi.Router) {
			r.Post("/tap", h.Hardware.Tap)
			r.Get("/status", h.Hardware.Status)
		})
	})

	return r
}
