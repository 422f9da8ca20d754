package www

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"

	"gasflow/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	tmpls    map[string]*template.Template
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	sessionStore := newSessionStore(eng.AppConfig().Web.SessionSecret)

	// Parse layout + partials as a base template set. Each page is cloned separately
	// to avoid the "last define wins" problem with {{define "content"}}.
	base := template.New("").Funcs(templateFuncs())
	base = template.Must(base.ParseFS(templateFS, "templates/layout.html", "templates/partials/*.html"))

	pages := []string{
		"templates/dashboard.html",
		"templates/login.html",
		"templates/movements.html",
		"templates/maintenance.html",
		"templates/routes.html",
		"templates/tracking.html",
		"templates/history.html",
		"templates/config.html",
	}
	tmpls := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		clone := template.Must(base.Clone())
		clone = template.Must(clone.ParseFS(templateFS, p))
		// Key is the filename without path: "dashboard.html"
		name := p[len("templates/"):]
		tmpls[name] = clone
	}

	h := &Handlers{
		engine:   eng,
		sessions: sessionStore,
		tmpls:    tmpls,
		eventHub: hub,
	}

	h.ensureDefaultAdmin(context.Background(), eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Public routes
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/api/health", h.apiHealthCheck)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/events", hub.SSEHandler)
		r.Get("/", h.handleDashboard)

		r.Route("/cylinder-movements", func(r chi.Router) {
			r.Get("/", h.handleMovements)
			r.Post("/", h.handleMovementCreate)
			r.Post("/{id}", h.handleMovementUpdate)
			r.Post("/{id}/delete", h.handleMovementDelete)
		})
		r.Route("/cylinder-maintenance", func(r chi.Router) {
			r.Get("/", h.handleMaintenance)
			r.Post("/", h.handleMaintenanceCreate)
			r.Post("/{id}", h.handleMaintenanceUpdate)
			r.Post("/{id}/start", h.handleMaintenanceStart)
			r.Post("/{id}/complete", h.handleMaintenanceComplete)
			r.Post("/{id}/cancel", h.handleMaintenanceCancel)
			r.Post("/{id}/delete", h.handleMaintenanceDelete)
		})
		r.Route("/delivery-routes", func(r chi.Router) {
			r.Get("/", h.handleRoutes)
			r.Post("/", h.handleRouteCreate)
			r.Get("/{id}", h.handleRouteDetail)
			r.Post("/{id}", h.handleRouteUpdate)
			r.Post("/{id}/delete", h.handleRouteDelete)
			r.Post("/{id}/stops/{stopID}", h.handleStopUpdate)
		})
		r.Get("/product-tracking", h.handleTracking)
		r.Get("/product-tracking/{id}", h.handleInstanceHistory)

		r.Get("/config", h.handleConfig)
		r.Post("/config/save", h.handleConfigSave)

		// Binary documents and exports
		r.Get("/deposits/{id}/receipt.pdf", h.handleDepositReceiptPDF)
		r.Post("/deposits/{id}/receipt/email", h.handleDepositReceiptEmail)
		r.Get("/documents/{id}/pdf", h.handleDocumentPDF)
		r.Post("/documents/{id}/email", h.handleDocumentEmail)
		r.Get("/reports/movements.xlsx", h.handleMovementsExport)
		r.Get("/reports/stock.xlsx", h.handleStockExport)
		r.Get("/reports/deposits.xlsx", h.handleDepositsExport)

		r.Route("/api", func(r chi.Router) {
			r.Get("/audit", h.apiAuditLog)
			r.Get("/counts", h.apiCounts)

			r.Get("/depots", h.apiListDepots)
			r.Post("/depots", h.apiCreateDepot)
			r.Get("/depots/stock", h.apiAllDepotStocks)
			r.Get("/depots/{id}", h.apiGetDepot)
			r.Put("/depots/{id}", h.apiUpdateDepot)
			r.Delete("/depots/{id}", h.apiDeleteDepot)
			r.Get("/depots/{id}/stock", h.apiDepotStock)

			r.Get("/customers", h.apiListCustomers)
			r.Post("/customers", h.apiCreateCustomer)
			r.Get("/customers/{id}", h.apiGetCustomer)
			r.Put("/customers/{id}", h.apiUpdateCustomer)
			r.Delete("/customers/{id}", h.apiDeleteCustomer)
			r.Post("/customers/{id}/addresses", h.apiAddAddress)

			r.Get("/employees", h.apiListEmployees)
			r.Post("/employees", h.apiCreateEmployee)
			r.Delete("/employees/{id}", h.apiDeleteEmployee)
			r.Get("/drivers", h.apiListDrivers)
			r.Post("/drivers", h.apiCreateDriver)
			r.Delete("/drivers/{id}", h.apiDeleteDriver)
			r.Get("/drivers/{id}/routes", h.apiDriverRoutes)
			r.Get("/vehicles", h.apiListVehicles)
			r.Post("/vehicles", h.apiCreateVehicle)
			r.Delete("/vehicles/{id}", h.apiDeleteVehicle)

			r.Get("/products", h.apiListProducts)
			r.Post("/products", h.apiCreateProduct)
			r.Get("/products/{id}", h.apiGetProduct)
			r.Put("/products/{id}", h.apiUpdateProduct)

			r.Get("/instances", h.apiListInstances)
			r.Post("/instances", h.apiRegisterInstance)
			r.Get("/instances/schedule", h.apiScheduleCandidates)
			r.Get("/instances/damaged", h.apiDamagedInstances)
			r.Get("/instances/serial/{serial}", h.apiInstanceBySerial)
			r.Get("/instances/{id}", h.apiGetInstance)
			r.Put("/instances/{id}", h.apiUpdateInstance)
			r.Post("/instances/{id}/state", h.apiSetInstanceState)
			r.Post("/instances/{id}/retire", h.apiRetireInstance)
			r.Get("/instances/{id}/location", h.apiInstanceLocation)
			r.Get("/instances/{id}/history", h.apiInstanceHistory)
			r.Get("/tracking", h.apiTracking)

			r.Get("/movements", h.apiListMovements)
			r.Post("/movements", h.apiRecordMovement)
			r.Get("/movements/{id}", h.apiGetMovement)
			r.Put("/movements/{id}", h.apiUpdateMovement)
			r.Delete("/movements/{id}", h.apiDeleteMovement)

			r.Get("/maintenance", h.apiListMaintenance)
			r.Post("/maintenance", h.apiCreateMaintenance)
			r.Get("/maintenance/overdue", h.apiOverdueMaintenance)
			r.Get("/maintenance/{id}", h.apiGetMaintenance)
			r.Put("/maintenance/{id}", h.apiUpdateMaintenance)
			r.Delete("/maintenance/{id}", h.apiDeleteMaintenance)
			r.Post("/maintenance/{id}/start", h.apiStartMaintenance)
			r.Post("/maintenance/{id}/complete", h.apiCompleteMaintenance)
			r.Post("/maintenance/{id}/cancel", h.apiCancelMaintenance)

			r.Get("/orders", h.apiListOrders)
			r.Post("/orders", h.apiCreateOrder)
			r.Get("/orders/report", h.apiOrderReport)
			r.Get("/orders/products-report", h.apiProductReport)
			r.Get("/orders/products-report/{productID}", h.apiProductDetail)
			r.Get("/orders/deliverable", h.apiDeliverableOrders)
			r.Get("/orders/{id}", h.apiGetOrder)
			r.Post("/orders/{id}/status", h.apiTransitionOrder)
			r.Post("/orders/{id}/cancel", h.apiCancelOrder)
			r.Post("/orders/{id}/invoice", h.apiCreateInvoice)

			r.Get("/routes", h.apiListRoutes)
			r.Post("/routes", h.apiCreateRoute)
			r.Get("/routes/{id}", h.apiGetRoute)
			r.Put("/routes/{id}", h.apiUpdateRoute)
			r.Delete("/routes/{id}", h.apiDeleteRoute)
			r.Put("/routes/{id}/stops/{stopID}", h.apiUpdateStop)

			r.Get("/inventory", h.apiInventory)
			r.Get("/inventory/overview", h.apiStockOverview)
			r.Get("/inventory/stats", h.apiStockStats)
			r.Get("/inventory/low-stock", h.apiLowStock)
			r.Get("/inventory/adjustments", h.apiAdjustments)
			r.Post("/inventory/adjust", h.apiAdjustStock)
			r.Get("/forecast", h.apiForecast)

			r.Get("/alerts", h.apiListAlerts)
			r.Post("/alerts", h.apiSetAlert)
			r.Put("/alerts/{id}", h.apiUpdateAlert)
			r.Delete("/alerts/{id}", h.apiDeleteAlert)

			r.Get("/inventory-orders", h.apiListCountOrders)
			r.Post("/inventory-orders", h.apiCreateCountOrder)
			r.Get("/inventory-orders/report", h.apiCountReport)
			r.Get("/inventory-orders/{id}", h.apiGetCountOrder)
			r.Post("/inventory-orders/{id}/start", h.apiStartCountOrder)
			r.Post("/inventory-orders/{id}/complete", h.apiCompleteCountOrder)
			r.Post("/inventory-orders/{id}/cancel", h.apiCancelCountOrder)

			r.Get("/deposits", h.apiListDeposits)
			r.Post("/deposits", h.apiCreateDeposit)
			r.Get("/deposits/report", h.apiDepositReport)
			r.Get("/deposits/rates", h.apiListRates)
			r.Put("/deposits/rates/{productID}", h.apiSetRate)
			r.Get("/deposits/{id}", h.apiGetDeposit)
			r.Post("/deposits/{id}/return", h.apiReturnDeposit)

			r.Get("/documents", h.apiListDocuments)
			r.Get("/documents/report", h.apiDocumentReport)
			r.Get("/documents/{id}", h.apiGetDocument)
			r.Post("/documents/{id}/pay", h.apiMarkPaid)
		})
	})

	stopFn := func() {
		hub.DetachEngineListeners(eng)
		hub.Stop()
	}

	return r, stopFn
}

// page builds the data map every rendered page starts from.
func (h *Handlers) page(w http.ResponseWriter, r *http.Request, name string) map[string]any {
	return map[string]any{
		"Page":          name,
		"Authenticated": h.isAuthenticated(r),
		"Username":      h.getUsername(r),
		"Flashes":       h.popFlashes(w, r),
	}
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := h.tmpls[name]
	if !ok {
		log.Printf("render: template %q not found", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

// done flashes the outcome of a form post and redirects to target.
func (h *Handlers) done(w http.ResponseWriter, r *http.Request, target, success string, err error) {
	if err != nil {
		log.WithField("path", r.URL.Path).Warnf("www: form rejected: %v", err)
		h.flash(w, r, "error", errorMessage(err))
	} else if success != "" {
		h.flash(w, r, "success", success)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", h.page(w, r, "login"))
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.engine.DB().GetAdminUser(r.Context(), username)
	if err != nil || !checkPassword(user.PasswordHash, password) {
		data := h.page(w, r, "login")
		data["Error"] = "Invalid username or password"
		w.WriteHeader(http.StatusUnauthorized)
		h.render(w, "login.html", data)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
