package dto

import "medrag-be/pkg/extraction"

type UploadResponse struct {
	FileId   string            `json:"fileId"`
	FileName string            `json:"fileName"`
	Size     int64             `json:"size"`
	Status   extraction.Status `json:"status"`
	Message  string            `json:"message"`
}

// UploadBatchResponse carries every accepted file. The first one is also flattened into the
// top level for clients that send a single file.
type UploadBatchResponse struct {
	*UploadResponse
	Files []*UploadResponse `json:"files"`
}

type UploadProgressResponse struct {
	FileId   string            `json:"fileId"`
	Progress int               `json:"progress"`
	Status   extraction.Status `json:"status"`
	Message  string            `json:"message,omitempty"`
}
