package www

import (
	"html/template"
	"net/http"
	"strconv"

	"gasflow/lifecycle"
	"gasflow/store"
)

func movementFilter(r *http.Request) store.MovementFilter {
	q := r.URL.Query()
	return store.MovementFilter{
		MovementType: q.Get("movement_type"),
		Status:       q.Get("status"),
		Serial:       q.Get("serial"),
		ProductCode:  q.Get("product_code"),
		ProductLabel: q.Get("product_label"),
		ProductType:  q.Get("product_type"),
		From:         queryDate(r, "from"),
		To:           queryDate(r, "to"),
	}
}

func movementForm(r *http.Request) lifecycle.MovementInput {
	in := lifecycle.MovementInput{
		InstanceID:   formInt64(r, "instance_id"),
		MovementType: r.FormValue("movement_type"),
		Status:       r.FormValue("status"),
		Source:       formLocation(r, "source"),
		RouteID:      formInt64Ptr(r, "route_id"),
		OrderID:      formInt64Ptr(r, "order_id"),
		MovementDate: formDate(r, "movement_date"),
		Comments:     r.FormValue("comments"),
	}
	if dst := formLocation(r, "destination"); dst != nil {
		in.Destination = *dst
	}
	return in
}

// locationChoices lists every depot and customer as "<kind>:<id>" options.
func (h *Handlers) locationChoices(r *http.Request) ([]*store.Depot, []*store.Customer) {
	depots, _ := h.engine.Directory.ListDepots(r.Context())
	customers, _ := h.engine.Directory.ListCustomers(r.Context(), "")
	return depots, customers
}

func (h *Handlers) handleMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := movementFilter(r)
	page := queryInt(r, "page", 1)
	result, err := h.engine.Lifecycle.ListMovements(ctx, f, page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	instances, _ := h.engine.Lifecycle.ListInstances(ctx, store.InstanceFilter{})
	depots, customers := h.locationChoices(r)

	data := h.page(w, r, "movements")
	data["Result"] = result
	data["Filter"] = f
	data["Query"] = r.URL.Query()
	data["ExportURL"] = template.URL("/reports/movements.xlsx?" + r.URL.Query().Encode())
	data["Instances"] = instances
	data["Depots"] = depots
	data["Customers"] = customers
	data["EditSource"], data["EditDestination"] = "", ""
	if id := queryInt64(r, "edit"); id > 0 {
		if m, err := h.engine.Lifecycle.GetMovement(ctx, id); err == nil {
			data["Editing"] = m
			if m.Source != nil {
				data["EditSource"] = m.Source.String()
			}
			data["EditDestination"] = m.Destination.String()
		}
	}
	h.render(w, "movements.html", data)
}

func (h *Handlers) handleMovementCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := h.engine.Lifecycle.RecordMovement(r.Context(), movementForm(r), h.getUsername(r))
	msg := ""
	if err == nil {
		msg = "Movement #" + strconv.FormatInt(m.ID, 10) + " recorded"
	}
	h.done(w, r, "/cylinder-movements", msg, err)
}

func (h *Handlers) handleMovementUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, err := h.engine.Lifecycle.UpdateMovement(r.Context(), id, movementForm(r), h.getUsername(r))
	h.done(w, r, "/cylinder-movements", "Movement updated", err)
}

func (h *Handlers) handleMovementDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	err := h.engine.Lifecycle.DeleteMovement(r.Context(), id, h.getUsername(r))
	h.done(w, r, "/cylinder-movements", "Movement deleted", err)
}

// --- JSON API ---

func (h *Handlers) apiListMovements(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Lifecycle.ListMovements(r.Context(), movementFilter(r), queryInt(r, "page", 1))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, result)
}

func (h *Handlers) apiRecordMovement(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.MovementInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.engine.Lifecycle.RecordMovement(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, m)
}

func (h *Handlers) apiGetMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	m, err := h.engine.Lifecycle.GetMovement(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiUpdateMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in lifecycle.MovementInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.engine.Lifecycle.UpdateMovement(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiDeleteMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Lifecycle.DeleteMovement(r.Context(), id, h.getUsername(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
