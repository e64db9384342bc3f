package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/store"
)

type viewLink struct {
	Name   core.View
	Label  string
	Active bool
}

type pageData struct {
	CurrentView core.View
	Currency    string
	Modal       core.Modal
	Views       []viewLink
}

func buildPageData(snap store.State) pageData {
	labels := []struct {
		view  core.View
		label string
	}{
		{core.ViewDashboard, "Dashboard"},
		{core.ViewTransactions, "Transactions"},
		{core.ViewCategories, "Categories"},
		{core.ViewCharts, "Charts"},
		{core.ViewSettings, "Settings"},
	}
	data := pageData{
		CurrentView: snap.CurrentView,
		Currency:    snap.Currency,
		Modal:       snap.Modal,
	}
	for _, l := range labels {
		data.Views = append(data.Views, viewLink{
			Name:   l.view,
			Label:  l.label,
			Active: l.view == snap.CurrentView,
		})
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", buildPageData(s.store.Snapshot()))
}

// handleSetView switches the active view and re-renders the content region.
func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	view := core.View(r.PathValue("view"))
	if !view.Valid() {
		UnprocessableEntityError("Unknown view").Write(w)
		return
	}
	s.store.SetView(view)
	s.render(w, r, "content.html", buildPageData(s.store.Snapshot()))
}

type modalData struct {
	Modal      core.Modal
	Categories []string
	Editing    *transactionRow
	Today      string
}

// handleOpenModal opens the transaction or category form.
func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	modal := core.Modal(formField(r.Form, "modal"))
	if modal != core.ModalTransaction && modal != core.ModalCategory {
		UnprocessableEntityError("Unknown modal").Write(w)
		return
	}
	editingID := formField(r.Form, "editing_id")
	s.store.OpenModal(modal, editingID)

	snap := s.store.Snapshot()
	data := modalData{
		Modal:      modal,
		Categories: snap.Categories,
		Today:      core.Today().String(),
	}
	if editingID != "" {
		for _, tx := range snap.Transactions {
			if tx.ID == editingID {
				row := buildTransactionRow(snap.Currency, tx)
				data.Editing = &row
				break
			}
		}
	}
	s.render(w, r, "modal.html", data)
}

// handleCloseModal closes any open modal and clears the modal region.
func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	s.store.CloseModal()
	w.WriteHeader(http.StatusOK)
}
