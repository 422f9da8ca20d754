package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gasflow/lifecycle"
	"gasflow/store"
)

func instanceFilter(r *http.Request) store.InstanceFilter {
	q := r.URL.Query()
	return store.InstanceFilter{
		ProductID: queryInt64(r, "product_id"),
		State:     q.Get("state"),
		Status:    q.Get("status"),
		Serial:    q.Get("serial"),
	}
}

func (h *Handlers) handleTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := r.URL.Query().Get("category")
	tracked, err := h.engine.Lifecycle.Tracking(ctx, instanceFilter(r), category)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	products, _ := h.engine.Directory.ListProducts(ctx)
	depots, customers := h.locationChoices(r)

	byCategory := map[string]int{}
	for _, t := range tracked {
		byCategory[t.Location.Category]++
	}

	data := h.page(w, r, "tracking")
	data["Tracked"] = tracked
	data["ByCategory"] = byCategory
	data["Query"] = r.URL.Query()
	data["Products"] = products
	data["Depots"] = depots
	data["Customers"] = customers
	data["Categories"] = []string{
		lifecycle.CategoryCustomer,
		lifecycle.CategoryDepot,
		lifecycle.CategoryMaintenance,
		lifecycle.CategoryInTransit,
		lifecycle.CategoryUnknown,
	}
	h.render(w, "tracking.html", data)
}

func (h *Handlers) handleInstanceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	history, err := h.engine.Lifecycle.History(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	audit, _ := h.engine.DB().ListEntityAudit(r.Context(), "instance", id)

	data := h.page(w, r, "tracking")
	data["History"] = history
	data["Audit"] = audit
	h.render(w, "history.html", data)
}

// --- JSON API ---

func (h *Handlers) apiTracking(w http.ResponseWriter, r *http.Request) {
	tracked, err := h.engine.Lifecycle.Tracking(r.Context(), instanceFilter(r), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, tracked)
}

func (h *Handlers) apiListInstances(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Lifecycle.ListInstances(r.Context(), instanceFilter(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiRegisterInstance(w http.ResponseWriter, r *http.Request) {
	var in lifecycle.InstanceInput
	if !h.decode(w, r, &in) {
		return
	}
	inst, err := h.engine.Lifecycle.RegisterInstance(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, inst)
}

func (h *Handlers) apiGetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	inst, err := h.engine.Lifecycle.GetInstance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, inst)
}

func (h *Handlers) apiInstanceBySerial(w http.ResponseWriter, r *http.Request) {
	inst, err := h.engine.Lifecycle.GetInstanceBySerial(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, inst)
}

func (h *Handlers) apiUpdateInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in lifecycle.InstanceInput
	if !h.decode(w, r, &in) {
		return
	}
	inst, err := h.engine.Lifecycle.UpdateInstance(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, inst)
}

func (h *Handlers) apiSetInstanceState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		State string `json:"state"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.engine.Lifecycle.SetState(r.Context(), id, body.State, h.getUsername(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.apiGetInstance(w, r)
}

func (h *Handlers) apiRetireInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Lifecycle.Retire(r.Context(), id, h.getUsername(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.apiGetInstance(w, r)
}

func (h *Handlers) apiInstanceLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	loc, err := h.engine.Lifecycle.Location(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, loc)
}

func (h *Handlers) apiInstanceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	history, err := h.engine.Lifecycle.History(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, history)
}

func (h *Handlers) apiScheduleCandidates(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Lifecycle.ScheduleCandidates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiDamagedInstances(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Lifecycle.Damaged(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}
