package www

import (
	"net/http"

	"gasflow/stock"
)

func (h *Handlers) apiInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if depotID := queryInt64(r, "depot_id"); depotID > 0 {
		items, err := h.engine.Stock.DepotInventory(ctx, depotID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.jsonOK(w, items)
		return
	}
	items, err := h.engine.Stock.Inventory(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, items)
}

func (h *Handlers) apiStockOverview(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.Overview(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiStockStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stock.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, stats)
}

func (h *Handlers) apiLowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.LowStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiAdjustments(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.Adjustments(r.Context(), queryInt64(r, "depot_id"), queryInt64(r, "product_id"), queryInt(r, "limit", 50))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	var in stock.AdjustInput
	if !h.decode(w, r, &in) {
		return
	}
	adj, err := h.engine.Stock.Adjust(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, adj)
}

func (h *Handlers) apiForecast(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.Forecast(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

// --- alerts ---

func (h *Handlers) apiListAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.Alerts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiSetAlert(w http.ResponseWriter, r *http.Request) {
	var in stock.AlertInput
	if !h.decode(w, r, &in) {
		return
	}
	a, err := h.engine.Stock.SetAlert(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, a)
}

func (h *Handlers) apiUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Threshold int  `json:"threshold"`
		Active    bool `json:"active"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	a, err := h.engine.Stock.UpdateAlert(r.Context(), id, body.Threshold, body.Active)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, a)
}

func (h *Handlers) apiDeleteAlert(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.engine.Stock.DeleteAlert)
}

// --- count orders ---

func (h *Handlers) apiListCountOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Stock.CountOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCountReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Stock.CountReport(r.Context(), queryDate(r, "start_date"), queryDate(r, "end_date"), queryInt64(r, "depot_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, report)
}

func (h *Handlers) apiCreateCountOrder(w http.ResponseWriter, r *http.Request) {
	var in stock.CountOrderInput
	if !h.decode(w, r, &in) {
		return
	}
	o, err := h.engine.Stock.CreateCountOrder(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, o)
}

func (h *Handlers) apiGetCountOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Stock.GetCountOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiStartCountOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Stock.StartCountOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiCompleteCountOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Results []stock.CountResult `json:"results"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	o, err := h.engine.Stock.CompleteCountOrder(r.Context(), id, body.Results, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}

func (h *Handlers) apiCancelCountOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	o, err := h.engine.Stock.CancelCountOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, o)
}
