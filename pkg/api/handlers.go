package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"cryptoagg/pkg/aggregator"
	"cryptoagg/pkg/market"
)

const (
	viewConsolidated = "consolidated"
	viewIndividual   = "individual"
)

type priceFields struct {
	BuyingPrice  *decimal.Decimal `json:"Buying price"`
	SellingPrice *decimal.Decimal `json:"Selling price"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	asset, err := market.ParseAsset(r.PathValue("crypto"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q := r.URL.Query()
	quantity, err := parseQuantity(q.Get("quantity"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	switch view := q.Get("view"); view {
	case viewConsolidated:
		quote, err := s.svc.ConsolidatedPrice(r.Context(), asset, quantity)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Crypto   market.Asset    `json:"Crypto"`
			Quantity decimal.Decimal `json:"Quantity"`
			priceFields
		}{asset, quantity, priceFields{quote.BuyingPrice, quote.SellingPrice}})

	case viewIndividual:
		quotes, err := s.svc.PerVenuePrice(r.Context(), asset, quantity)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp := map[string]any{"Crypto": asset, "Quantity": quantity}
		for name, quote := range quotes {
			resp[name] = priceFields{quote.BuyingPrice, quote.SellingPrice}
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("view must be %q or %q", viewConsolidated, viewIndividual))
	}
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	asset, err := market.ParseAsset(r.PathValue("crypto"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
		return
	}

	trades, err := s.svc.Trades(r.Context(), asset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := map[string]any{"crypto": asset}
	for name, t := range trades {
		resp[name] = t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	exchange := strings.ToLower(r.URL.Query().Get("exchange"))
	if !slices.Contains(s.svc.Venues(), exchange) {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("exchange must be one of %s", strings.Join(s.svc.Venues(), ", ")))
		return
	}

	balances, err := s.svc.Balances(r.Context(), exchange)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, errors.New("quantity is required")
	}
	q, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quantity %q is not a number", raw)
	}
	if q.IsNegative() {
		return decimal.Zero, errors.New("quantity must not be negative")
	}
	return q, nil
}

// writeError maps core errors to their own status and detail. Anything else is
// reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *market.Error
	switch {
	case errors.As(err, &e):
		s.log.Error("request failed", "kind", e.Kind.String(), "venue", e.Venue, "error", err)
		writeDetail(w, e.Status, e.Detail)
	case errors.Is(err, aggregator.ErrUnknownVenue):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
