package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// maxImportSize caps uploaded backup documents at 5 MiB.
const maxImportSize = 5 << 20

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}

	code, err := core.NormalizeCurrency(formField(r.Form, "currency"))
	if err != nil {
		UnprocessableEntityError("Currency code must be at least three letters").Write(w)
		return
	}
	s.store.SetCurrency(code)

	NewHTMXResponse().
		TriggerSettingsChanged().
		TriggerSuccessNotification("Currency set to " + code).
		Write(w)
}

// handleExport streams the backup document as a JSON download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.gateway.Export(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Export failed", "error", err)
		InternalServerError("Export failed").Write(w)
		return
	}

	filename := "tally-export-" + time.Now().Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleImport replaces the whole state with an uploaded backup document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, errResp := readImportPayload(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	if err := s.gateway.Import(r.Context(), payload); err != nil {
		if errors.Is(err, storage.ErrInvalidPayload) {
			UnprocessableEntityError("File is not a valid backup document").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Import failed", "error", err)
		InternalServerError("Import failed").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Data imported").
		Refresh().
		Write(w)
}

// readImportPayload accepts either a multipart file upload named "file" or a
// raw JSON body.
func readImportPayload(r *http.Request) ([]byte, *HTMXResponseBuilder) {
	if err := r.ParseMultipartForm(maxImportSize); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, BadRequestError("Missing upload file")
		}
		defer file.Close()
		payload, err := io.ReadAll(io.LimitReader(file, maxImportSize))
		if err != nil {
			return nil, BadRequestError("Unreadable upload")
		}
		return payload, nil
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil || len(payload) == 0 {
		return nil, BadRequestError("Empty import payload")
	}
	return payload, nil
}

// handleClear wipes persisted data and resets the store to defaults.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.gateway.ClearAll(r.Context())

	NewHTMXResponse().
		TriggerSuccessNotification("All data cleared").
		Refresh().
		Write(w)
}
