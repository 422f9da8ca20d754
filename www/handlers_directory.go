package www

import (
	"net/http"
	"sort"

	"gasflow/directory"
	"gasflow/stockstate"
)

func (h *Handlers) apiCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.engine.Directory.Counts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, counts)
}

// --- depots ---

func (h *Handlers) apiListDepots(w http.ResponseWriter, r *http.Request) {
	depots, err := h.engine.Directory.ListDepots(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, depots)
}

func (h *Handlers) apiCreateDepot(w http.ResponseWriter, r *http.Request) {
	var in directory.DepotInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.engine.Directory.CreateDepot(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, d)
}

func (h *Handlers) apiGetDepot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	d, err := h.engine.Directory.GetDepot(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiUpdateDepot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in directory.DepotInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.engine.Directory.UpdateDepot(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiDeleteDepot(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Directory.DeleteDepot(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiDepotStock serves a depot's stock from the cache, falling back to SQL.
func (h *Handlers) apiDepotStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	st, err := h.engine.StockState().GetDepotStock(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, st)
}

// apiAllDepotStocks serves the stock of every depot, ordered by depot code.
func (h *Handlers) apiAllDepotStocks(w http.ResponseWriter, r *http.Request) {
	all, err := h.engine.StockState().GetAllDepotStocks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	list := make([]*stockstate.DepotStock, 0, len(all))
	for _, st := range all {
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DepotCode < list[j].DepotCode })
	h.jsonOK(w, list)
}

// --- customers ---

func (h *Handlers) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Directory.ListCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var in directory.CustomerInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.engine.Directory.CreateCustomer(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, c)
}

func (h *Handlers) apiGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	c, err := h.engine.Directory.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, c)
}

func (h *Handlers) apiUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in directory.CustomerInput
	if !h.decode(w, r, &in) {
		return
	}
	c, err := h.engine.Directory.UpdateCustomer(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, c)
}

func (h *Handlers) apiDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Directory.DeleteCustomer(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) apiAddAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in directory.AddressInput
	if !h.decode(w, r, &in) {
		return
	}
	a, err := h.engine.Directory.AddAddress(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, a)
}

// --- staff and fleet ---

func (h *Handlers) apiListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Directory.ListEmployees(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in directory.EmployeeInput
	if !h.decode(w, r, &in) {
		return
	}
	e, err := h.engine.Directory.CreateEmployee(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, e)
}

func (h *Handlers) apiDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.engine.Directory.DeleteEmployee)
}

func (h *Handlers) apiListDrivers(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Directory.ListDrivers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateDriver(w http.ResponseWriter, r *http.Request) {
	var in directory.DriverInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.engine.Directory.CreateDriver(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, d)
}

func (h *Handlers) apiDeleteDriver(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.engine.Directory.DeleteDriver)
}

func (h *Handlers) apiListVehicles(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Directory.ListVehicles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var in directory.VehicleInput
	if !h.decode(w, r, &in) {
		return
	}
	v, err := h.engine.Directory.CreateVehicle(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, v)
}

func (h *Handlers) apiDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.engine.Directory.DeleteVehicle)
}

// --- products ---

func (h *Handlers) apiListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Directory.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in directory.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.engine.Directory.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, p)
}

func (h *Handlers) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	p, err := h.engine.Directory.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, p)
}

func (h *Handlers) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in directory.ProductInput
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.engine.Directory.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, p)
}
