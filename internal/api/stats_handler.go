package api

import "net/http"

type EarningsDTO struct {
	Daily   string `json:"daily"`
	Weekly  string `json:"weekly"`
	Monthly string `json:"monthly"`
	Total   string `json:"total"`
}

type OverviewDTO struct {
	TodaySales       string `json:"today_sales"`
	MonthlySales     string `json:"monthly_sales"`
	ProductCount     int64  `json:"product_count"`
	TransactionCount int64  `json:"transaction_count"`
}

func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	e := h.stats.Earnings(r.Context())
	respondJSON(w, http.StatusOK, EarningsDTO{
		Daily:   e.Daily.StringFixed(2),
		Weekly:  e.Weekly.StringFixed(2),
		Monthly: e.Monthly.StringFixed(2),
		Total:   e.Total.StringFixed(2),
	})
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	o := h.stats.Overview(r.Context())
	respondJSON(w, http.StatusOK, OverviewDTO{
		TodaySales:       o.TodaySales.StringFixed(2),
		MonthlySales:     o.MonthlySales.StringFixed(2),
		ProductCount:     o.ProductCount,
		TransactionCount: o.TransactionCount,
	})
}
