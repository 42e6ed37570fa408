package models

import "github.com/ecoroute/ecoroute/internal/history"

// HistoryResponse is the response of GET /v1/eco/history.
type HistoryResponse struct {
	Items []history.Record `json:"items"`
	Limit int              `json:"limit"`
}
