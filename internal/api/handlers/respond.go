package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/wonny/carteira/internal/contracts"
)

// maxBodyBytes caps request bodies (price tables)
const maxBodyBytes = 8 << 20

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps the error taxonomy to HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrConfiguration), errors.Is(err, contracts.ErrNumericDegeneracy):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondDomainError writes a typed error; internal errors are not echoed to the client
func respondDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := ErrorResponse{Error: err.Error(), Kind: contracts.KindOf(err)}

	var verr contracts.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	if status == http.StatusInternalServerError {
		body = ErrorResponse{Error: "Internal server error", Kind: body.Kind}
	}
	respondJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return contracts.InvalidInputError("body", "invalid JSON: %v", err)
	}
	return nil
}

// PriceTableRequest is a price table on the wire; null marks a missing price
type PriceTableRequest struct {
	Dates   []string     `json:"dates"` // YYYY-MM-DD
	Tickers []string     `json:"tickers"`
	Prices  [][]*float64 `json:"prices"`
}

// ToPriceTable converts the request into a validated PriceTable
func (p PriceTableRequest) ToPriceTable() (contracts.PriceTable, error) {
	table := contracts.PriceTable{
		Dates:   make([]time.Time, len(p.Dates)),
		Tickers: append([]string(nil), p.Tickers...),
		Prices:  make([][]float64, len(p.Prices)),
	}
	for i, d := range p.Dates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return contracts.PriceTable{}, contracts.InvalidInputError(fmt.Sprintf("dates[%d]", i), "expected YYYY-MM-DD, got %q", d)
		}
		table.Dates[i] = t
	}
	for i, row := range p.Prices {
		table.Prices[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				table.Prices[i][j] = math.NaN()
				continue
			}
			table.Prices[i][j] = *v
		}
	}

	if err := table.Validate(); err != nil {
		return contracts.PriceTable{}, err
	}
	return table, nil
}
