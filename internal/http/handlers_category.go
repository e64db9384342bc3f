package http

import (
	"html/template"
	"net/http"

	"tally/internal/core"
)

// handleCategoryList renders the category table with per-row removability.
func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	inUse := make(map[string]bool, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		inUse[tx.Category] = true
	}

	type categoryRow struct {
		Name      string
		Default   bool
		InUse     bool
		Removable bool
	}
	data := struct {
		Rows []categoryRow
	}{}
	for _, name := range snap.Categories {
		isDefault := core.IsDefaultCategory(name)
		data.Rows = append(data.Rows, categoryRow{
			Name:      name,
			Default:   isDefault,
			InUse:     inUse[name],
			Removable: !isDefault && !inUse[name],
		})
	}
	s.render(w, r, "categories.html", data)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	name := formField(r.Form, "name")
	if name == "" {
		UnprocessableEntityError("Category name is required").Write(w)
		return
	}
	if !s.store.AddCategory(name) {
		UnprocessableEntityError("Category already exists").Write(w)
		return
	}
	s.store.CloseModal()

	NewHTMXResponse().
		TriggerCategoryChanged().
		TriggerSuccessNotification("Category added").
		BodyHTML(`<div class="success">Added ` + template.HTMLEscapeString(name) + `</div>`).
		Write(w)
}

// handleRemoveCategory removes a user-defined category. Built-in categories
// and categories still referenced by a transaction answer 409.
func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.store.RemoveCategory(name) {
		ConflictError("Category is protected or still in use").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerCategoryChanged().
		TriggerSuccessNotification("Category removed").
		Write(w)
}
