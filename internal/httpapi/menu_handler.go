package httpapi

import (
	"net/http"
	"strconv"

	"dishdash-be/internal/apperr"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/utils"

	"github.com/gorilla/mux"
)

// menuFilter reads ?category=, ?available= and ?includeUnavailable=.
// Without either availability parameter only available items are listed.
func menuFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	var f catalog.Filter

	if v := q.Get("category"); v != "" {
		f.Category = utils.StrPtr(v)
	}

	if v := q.Get("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Invalid("available must be true or false")
		}
		f.Available = &b
		return f, nil
	}

	if q.Get("includeUnavailable") != "true" {
		available := true
		f.Available = &available
	}
	return f, nil
}

func (h *handler) listMenu(w http.ResponseWriter, r *http.Request) {
	f, err := menuFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

func (h *handler) menuCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cats)
}

func (h *handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, it)
}

func (h *handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var in catalog.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	it, err := h.catalog.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, it)
}

func (h *handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	var patch catalog.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	it, err := h.catalog.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, it)
}
