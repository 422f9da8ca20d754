package www

import (
	"net/http"

	"gasflow/store"
)

func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eng := h.engine

	counts, _ := eng.Directory.Counts(ctx)
	stats, _ := eng.Stock.Stats(ctx)
	lowStock, _ := eng.Stock.LowStock(ctx)
	overdue, _ := eng.Lifecycle.Overdue(ctx)
	report, _ := eng.Orders.Report(ctx)
	activeRoutes, _ := eng.Routes.List(ctx, store.RouteFilter{Status: store.RouteInProgress})
	recent, _ := eng.Lifecycle.ListMovements(ctx, store.MovementFilter{}, 1)

	data := h.page(w, r, "dashboard")
	data["Counts"] = counts
	data["Stats"] = stats
	data["LowStock"] = lowStock
	data["Overdue"] = overdue
	data["OrderReport"] = report
	data["ActiveRoutes"] = activeRoutes
	data["RecentMovements"] = recent.Items
	data["MessagingOK"] = eng.MessagingConnected()
	h.render(w, "dashboard.html", data)
}
