package www

import (
	"net/http"

	"gasflow/orders"
	"gasflow/store"
)

func (h *Handlers) apiListOrders(w http.ResponseWriter, r *http.Request) {
	f := store.OrderFilter{
		Status:     r.URL.Query().Get("status"),
		CustomerID: queryInt64(r, "customer_id"),
		From:       queryDate(r, "from"),
		To:         queryDate(r, "to"),
		Limit:      queryInt(r, "limit", 100),
	}
	list, err := h.engine.Orders.ListOrders(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.OrderInput
	if !h.decode(w, r, &in) {
		return
	}
	o, err := h.engine.Orders.CreateOrder(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, o)
}

func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiTransitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	o, err := h.engine.Orders.TransitionOrder(r.Context(), id, body.Status, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Orders.CancelOrder(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiOrderReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Orders.Report(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, report)
}

// apiProductReport takes period (day, week, month, year or custom) and,
// for custom, start_date and end_date.
func (h *Handlers) apiProductReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.engine.Orders.ProductReport(r.Context(), q.Get("period"), queryDate(r, "start_date"), queryDate(r, "end_date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, report)
}

func (h *Handlers) apiProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "productID")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	detail, err := h.engine.Orders.ProductDetail(r.Context(), id, q.Get("period"), queryDate(r, "start_date"), queryDate(r, "end_date"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, detail)
}
