package www

import (
	"net/http"
	"strconv"
	"strings"

	"gasflow/routing"
	"gasflow/store"
)

// routeForm reads the route fields and its stops. Stops arrive as parallel
// stop_order_id / stop_order / stop_arrival lists; blank rows are skipped.
func routeForm(r *http.Request) routing.RouteInput {
	in := routing.RouteInput{
		RouteDate: formDate(r, "route_date"),
		VehicleID: formInt64(r, "vehicle_id"),
		DriverID:  formInt64(r, "driver_id"),
		StartTime: r.FormValue("start_time"),
		EndTime:   r.FormValue("end_time"),
		Status:    r.FormValue("status"),
		Comments:  r.FormValue("comments"),
	}
	orderIDs := r.Form["stop_order_id"]
	positions := r.Form["stop_order"]
	arrivals := r.Form["stop_arrival"]
	for i, raw := range orderIDs {
		orderID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || orderID <= 0 {
			continue
		}
		stop := routing.StopInput{OrderID: orderID, StopOrder: i + 1}
		if i < len(positions) {
			if n, err := strconv.Atoi(strings.TrimSpace(positions[i])); err == nil {
				stop.StopOrder = n
			}
		}
		if i < len(arrivals) {
			stop.PlannedArrival = strings.TrimSpace(arrivals[i])
		}
		in.Stops = append(in.Stops, stop)
	}
	return in
}

func routeFilter(r *http.Request) store.RouteFilter {
	return store.RouteFilter{
		Status:   r.URL.Query().Get("status"),
		DriverID: queryInt64(r, "driver_id"),
		From:     queryDate(r, "from"),
		To:       queryDate(r, "to"),
	}
}

func (h *Handlers) routesPage(w http.ResponseWriter, r *http.Request) map[string]any {
	ctx := r.Context()
	routes, err := h.engine.Routes.List(ctx, routeFilter(r))
	if err != nil {
		h.flash(w, r, "error", errorMessage(err))
	}
	drivers, _ := h.engine.Directory.ListDrivers(ctx)
	vehicles, _ := h.engine.Directory.ListVehicles(ctx)
	deliverable, _ := h.engine.Routes.Deliverable(ctx)

	data := h.page(w, r, "routes")
	data["Routes"] = routes
	data["Query"] = r.URL.Query()
	data["Drivers"] = drivers
	data["Vehicles"] = vehicles
	data["Deliverable"] = deliverable
	return data
}

func (h *Handlers) handleRoutes(w http.ResponseWriter, r *http.Request) {
	h.render(w, "routes.html", h.routesPage(w, r))
}

func (h *Handlers) handleRouteDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	route, err := h.engine.Routes.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := h.routesPage(w, r)
	data["Selected"] = route
	h.render(w, "routes.html", data)
}

func (h *Handlers) handleRouteCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	route, err := h.engine.Routes.Create(r.Context(), routeForm(r), h.getUsername(r))
	if err != nil {
		h.done(w, r, "/delivery-routes", "", err)
		return
	}
	h.done(w, r, "/delivery-routes/"+strconv.FormatInt(route.ID, 10), "Route "+route.RouteNumber+" created", nil)
}

func (h *Handlers) handleRouteUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, err := h.engine.Routes.Update(r.Context(), id, routeForm(r), h.getUsername(r))
	h.done(w, r, "/delivery-routes/"+strconv.FormatInt(id, 10), "Route updated", err)
}

func (h *Handlers) handleRouteDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	err := h.engine.Routes.Delete(r.Context(), id, h.getUsername(r))
	h.done(w, r, "/delivery-routes", "Route deleted", err)
}

func (h *Handlers) handleStopUpdate(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	stopID, ok := pathID(r, "stopID")
	if !ok {
		http.Error(w, "invalid stop id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in := routing.StopUpdate{
		Status:        r.FormValue("status"),
		ActualArrival: r.FormValue("actual_arrival"),
		Comments:      r.FormValue("comments"),
	}
	_, err := h.engine.Routes.UpdateStopStatus(r.Context(), routeID, stopID, in, h.getUsername(r))
	h.done(w, r, "/delivery-routes/"+strconv.FormatInt(routeID, 10), "Stop updated", err)
}

// --- JSON API ---

func (h *Handlers) apiListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.engine.Routes.List(r.Context(), routeFilter(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, routes)
}

func (h *Handlers) apiCreateRoute(w http.ResponseWriter, r *http.Request) {
	var in routing.RouteInput
	if !h.decode(w, r, &in) {
		return
	}
	route, err := h.engine.Routes.Create(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, route)
}

func (h *Handlers) apiGetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	route, err := h.engine.Routes.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, route)
}

func (h *Handlers) apiUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in routing.RouteInput
	if !h.decode(w, r, &in) {
		return
	}
	route, err := h.engine.Routes.Update(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, route)
}

func (h *Handlers) apiDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Routes.Delete(r.Context(), id, h.getUsername(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) apiUpdateStop(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	stopID, ok := pathID(r, "stopID")
	if !ok {
		h.jsonError(w, "invalid stop id", http.StatusBadRequest)
		return
	}
	var in routing.StopUpdate
	if !h.decode(w, r, &in) {
		return
	}
	stop, err := h.engine.Routes.UpdateStopStatus(r.Context(), routeID, stopID, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, stop)
}

func (h *Handlers) apiDriverRoutes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	routes, err := h.engine.Routes.DriverRoutes(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, routes)
}

func (h *Handlers) apiDeliverableOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Routes.Deliverable(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}
