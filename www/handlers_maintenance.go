package www

import (
	"net/http"

	"gasflow/lifecycle"
	"gasflow/store"
)

func maintenanceFilter(r *http.Request) (store.MaintenanceFilter, bool) {
	q := r.URL.Query()
	f := store.MaintenanceFilter{
		MaintenanceType: q.Get("maintenance_type"),
		Status:          q.Get("status"),
		Serial:          q.Get("serial"),
		ProductID:       queryInt64(r, "product_id"),
		Result:          q.Get("maintenance_result"),
		PlannedFrom:     queryDate(r, "planned_from"),
		PlannedTo:       queryDate(r, "planned_to"),
		ActualFrom:      queryDate(r, "actual_from"),
		ActualTo:        queryDate(r, "actual_to"),
		Sort:            q.Get("sort"),
	}
	return f, q.Get("overdue") == "1"
}

func maintenanceForm(r *http.Request) (lifecycle.MaintenanceInput, error) {
	cost, err := formDecimal(r, "cost")
	if err != nil {
		return lifecycle.MaintenanceInput{}, err
	}
	return lifecycle.MaintenanceInput{
		InstanceID:          formInt64(r, "instance_id"),
		MaintenanceType:     r.FormValue("maintenance_type"),
		Status:              r.FormValue("status"),
		PlannedDate:         formDate(r, "planned_date"),
		ActualDate:          parseDate(r.FormValue("actual_date")),
		Result:              r.FormValue("maintenance_result"),
		Cost:                cost,
		NextMaintenanceDate: parseDate(r.FormValue("next_maintenance_date")),
		CertificateNumber:   r.FormValue("certificate_number"),
		PerformedBy:         r.FormValue("performed_by"),
		DestinationDepotID:  destinationDepot(r),
		Comments:            r.FormValue("comments"),
	}, nil
}

func completionForm(r *http.Request) (lifecycle.CompletionInput, error) {
	cost, err := formDecimal(r, "cost")
	if err != nil {
		return lifecycle.CompletionInput{}, err
	}
	in := lifecycle.CompletionInput{
		ActualDate:          formDate(r, "actual_date"),
		Result:              r.FormValue("maintenance_result"),
		PerformedBy:         r.FormValue("performed_by"),
		Cost:                cost,
		NextMaintenanceDate: parseDate(r.FormValue("next_maintenance_date")),
		CertificateNumber:   r.FormValue("certificate_number"),
		Comments:            r.FormValue("comments"),
	}
	if id := destinationDepot(r); id != nil {
		in.DestinationDepotID = *id
	}
	return in, nil
}

// destinationDepot reads the return depot from either field name the
// maintenance forms and API clients post.
func destinationDepot(r *http.Request) *int64 {
	if id := formInt64Ptr(r, "destination_depot_id"); id != nil {
		return id
	}
	return formInt64Ptr(r, "destination_depot")
}

func (h *Handlers) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, overdue := maintenanceFilter(r)
	result, err := h.engine.Lifecycle.ListMaintenance(ctx, f, overdue, queryInt(r, "page", 1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	instances, _ := h.engine.Lifecycle.ListInstances(ctx, store.InstanceFilter{})
	products, _ := h.engine.Directory.ListProducts(ctx)
	depots, _ := h.engine.Directory.ListDepots(ctx)

	data := h.page(w, r, "maintenance")
	data["Result"] = result
	data["Query"] = r.URL.Query()
	data["Overdue"] = overdue
	data["Instances"] = instances
	data["Products"] = products
	data["Depots"] = depots
	if id := queryInt64(r, "edit"); id > 0 {
		if m, err := h.engine.Lifecycle.GetMaintenance(ctx, id); err == nil {
			data["Editing"] = m
		}
	}
	if id := queryInt64(r, "complete"); id > 0 {
		if m, err := h.engine.Lifecycle.GetMaintenance(ctx, id); err == nil {
			data["Completing"] = m
		}
	}
	h.render(w, "maintenance.html", data)
}

func (h *Handlers) handleMaintenanceCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := maintenanceForm(r)
	if err == nil {
		_, err = h.engine.Lifecycle.CreateMaintenance(r.Context(), in, h.getUsername(r))
	}
	h.done(w, r, "/cylinder-maintenance", "Maintenance scheduled", err)
}

func (h *Handlers) handleMaintenanceUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := maintenanceForm(r)
	if err == nil {
		_, err = h.engine.Lifecycle.UpdateMaintenance(r.Context(), id, in, h.getUsername(r))
	}
	h.done(w, r, "/cylinder-maintenance", "Maintenance updated", err)
}

func (h *Handlers) handleMaintenanceStart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	_, err := h.engine.Lifecycle.StartMaintenance(r.Context(), id, h.getUsername(r))
	h.done(w, r, "/cylinder-maintenance", "Maintenance started", err)
}

func (h *Handlers) handleMaintenanceComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := completionForm(r)
	if err == nil {
		_, err = h.engine.Lifecycle.CompleteMaintenance(r.Context(), id, in, h.getUsername(r))
	}
	h.done(w, r, "/cylinder-maintenance", "Maintenance completed", err)
}

func (h *Handlers) handleMaintenanceCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	_, err := h.engine.Lifecycle.CancelMaintenance(r.Context(), id, h.getUsername(r))
	h.done(w, r, "/cylinder-maintenance", "Maintenance cancelled", err)
}

func (h *Handlers) handleMaintenanceDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	err := h.engine.Lifecycle.DeleteMaintenance(r.Context(), id, h.getUsername(r))
	h.done(w, r, "/cylinder-maintenance", "Maintenance deleted", err)
}

// --- JSON API ---

func (h *Handlers) apiListMaintenance(w http.ResponseWriter, r *http.Request) {
	f, overdue := maintenanceFilter(r)
	result, err := h.engine.Lifecycle.ListMaintenance(r.Context(), f, overdue, queryInt(r, "page", 1))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, result)
}

func (h *Handlers) apiOverdueMaintenance(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Lifecycle.Overdue(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.MaintenanceInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.engine.Lifecycle.CreateMaintenance(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, m)
}

func (h *Handlers) apiGetMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	m, err := h.engine.Lifecycle.GetMaintenance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiUpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in lifecycle.MaintenanceInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.engine.Lifecycle.UpdateMaintenance(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Lifecycle.DeleteMaintenance(r.Context(), id, h.getUsername(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) apiStartMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	m, err := h.engine.Lifecycle.StartMaintenance(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiCompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in lifecycle.CompletionInput
	if !h.decode(w, r, &in) {
		return
	}
	m, err := h.engine.Lifecycle.CompleteMaintenance(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}

func (h *Handlers) apiCancelMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	m, err := h.engine.Lifecycle.CancelMaintenance(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, m)
}
