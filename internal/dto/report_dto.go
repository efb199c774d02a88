package dto

import "pvflow/internal/model"

// CSVItemsResponse is the result of parsing an uploaded item sheet. Lines
// that could not be read are reported, not fatal.
type CSVItemsResponse struct {
	Items    []model.LineItem `json:"items"`
	Problems []CSVIssue       `json:"problems"`
}

type CSVIssue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}
