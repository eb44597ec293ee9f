package dto

import "medrag-be/pkg/similarity"

type CaseSearchRequest struct {
	Query string `query:"q" validate:"required"`
	TopK  int    `query:"k" validate:"omitempty,min=1,max=20"`
}

type CaseSearchResponse struct {
	Query   string                 `json:"query"`
	Results []similarity.CaseMatch `json:"results"`
}

type CaseDetailsResponse struct {
	CaseId   string                  `json:"caseId"`
	Metadata similarity.CaseMetadata `json:"metadata"`
}
