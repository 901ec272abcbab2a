package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
	"github.com/cashfolio/cashfolio/internal/rates"
)

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// urlUUID parses the named URL parameter as a UUID.
func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// --- families ---

type familyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		respondBadRequest(w, "name can't be blank")
		return
	}
	if !domain.ValidCurrency(req.Currency) {
		respondBadRequest(w, fmt.Sprintf("unknown currency %q", req.Currency))
		return
	}

	family := &domain.Family{
		ID:        uuid.New(),
		Name:      req.Name,
		Currency:  req.Currency,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateFamily(r.Context(), family); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, familyResponse{
		ID:        family.ID,
		Name:      family.Name,
		Currency:  family.Currency,
		CreatedAt: family.CreatedAt,
	})
}

// --- accounts ---

type accountResponse struct {
	ID             uuid.UUID `json:"id"`
	FamilyID       uuid.UUID `json:"family_id"`
	Name           string    `json:"name"`
	Accountable    string    `json:"accountable_type"`
	Classification string    `json:"classification"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		FamilyID:       a.FamilyID,
		Name:           a.Name,
		Accountable:    string(a.Accountable),
		Classification: a.Accountable.Classification(),
		Currency:       a.Currency,
		CreatedAt:      a.CreatedAt,
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FamilyID    uuid.UUID `json:"family_id"`
		Name        string    `json:"name"`
		Accountable string    `json:"accountable_type"`
		Currency    string    `json:"currency"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	account := &domain.Account{
		ID:          uuid.New(),
		FamilyID:    req.FamilyID,
		Name:        req.Name,
		Accountable: domain.AccountableType(req.Accountable),
		Currency:    req.Currency,
		CreatedAt:   time.Now().UTC(),
	}
	if err := account.Validate(); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if _, err := s.store.GetFamily(r.Context(), req.FamilyID); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	familyID, err := uuid.Parse(r.URL.Query().Get("family_id"))
	if err != nil {
		respondBadRequest(w, "family_id query parameter is required")
		return
	}

	accounts, err := s.store.ListAccounts(r.Context(), familyID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

type transactionResponse struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Date       string    `json:"date"`
	Name       string    `json:"name"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := urlUUID(r, "accountID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if _, err := s.store.GetAccount(r.Context(), accountID); err != nil {
		s.respondError(w, r, err)
		return
	}

	txs, err := s.store.ListTransactions(r.Context(), accountID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:         tx.ID,
			AccountID:  tx.AccountID,
			CategoryID: tx.CategoryID,
			Date:       tx.Date.Format("2006-01-02"),
			Name:       tx.Name,
			Amount:     tx.Amount.String(),
			Currency:   tx.Currency,
			CreatedAt:  tx.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

// --- imports ---

// importResponse is an Import plus its derived workflow gates, so a client can
// drive the load → configure → clean → publish progression without recomputing
// them.
type importResponse struct {
	*importer.Import
	Loaded     bool `json:"loaded"`
	Configured bool `json:"configured"`
	Cleaned    bool `json:"cleaned"`
}

func toImportResponse(im *importer.Import) importResponse {
	return importResponse{
		Import:     im,
		Loaded:     im.Loaded(),
		Configured: im.Configured(),
		Cleaned:    im.Cleaned(),
	}
}

func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID uuid.UUID `json:"account_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	im, err := s.service.Create(r.Context(), req.AccountID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toImportResponse(im))
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	im, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(im))
}

func (s *Server) handleUpdateCSV(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxCSVBytes)
	var req struct {
		RawCSV string `json:"raw_csv"`
	}
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("csv exceeds the %d byte limit", tooLarge.Limit),
			})
			return
		}
		respondBadRequest(w, err.Error())
		return
	}

	im, err := s.service.UpdateCSV(r.Context(), id, req.RawCSV)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(im))
}

func (s *Server) handleUpdateMappings(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	var mapping importer.ColumnMapping
	if err := decodeJSON(r, &mapping); err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	im, err := s.service.UpdateMappings(r.Context(), id, &mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportResponse(im))
}

func (s *Server) handleSuggestedMappings(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	mapping, err := s.service.SuggestedMapping(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

type previewResponse struct {
	Rows      []importer.ParsedRow `json:"rows"`
	TotalRows int                  `json:"total_rows"`
	Truncated bool                 `json:"truncated"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	rows, err := s.service.Preview(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := previewResponse{Rows: rows, TotalRows: len(rows)}
	if limit := s.cfg.Import.PreviewRows; len(rows) > limit {
		resp.Rows = rows[:limit]
		resp.Truncated = true
	}
	if resp.Rows == nil {
		resp.Rows = []importer.ParsedRow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	im, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !im.Cleaned() {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "import is not ready to publish",
		})
		return
	}

	if r.URL.Query().Get("sync") == "true" {
		if err := s.service.Publish(r.Context(), id); err != nil {
			s.respondError(w, r, err)
			return
		}
		im, err := s.service.Get(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toImportResponse(im))
		return
	}

	if err := s.service.PublishLater(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleDestroyImport(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "importID")
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	if err := s.service.Destroy(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- conversion ---

type convertResponse struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    string  `json:"amount"`
	Date      string  `json:"date"`
	Converted *string `json:"converted"`
	Formatted *string `json:"formatted"`
}

// handleConvert converts an amount between currencies at the stored rate for a
// day. When no rate is stored the response carries a null converted value; the
// request itself is still a success.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		respondBadRequest(w, "amount must be a decimal number")
		return
	}

	date := time.Now().UTC()
	if raw := q.Get("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			respondBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
	}

	converted, err := s.converter.Convert(r.Context(), from, to, amount, date)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	resp := convertResponse{
		From:   from,
		To:     to,
		Amount: amount.String(),
		Date:   date.Format("2006-01-02"),
	}
	if converted != nil {
		val := converted.String()
		formatted := rates.Format(*converted, to)
		resp.Converted = &val
		resp.Formatted = &formatted
	}
	writeJSON(w, http.StatusOK, resp)
}
