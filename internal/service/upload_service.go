package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"medrag-be/internal/dto"
	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/extraction"
	"medrag-be/pkg/storage"

	"github.com/google/uuid"
)

const maxFilesPerUpload = 10

type UploadFile struct {
	Name string
	Data []byte
}

type UploadLimits struct {
	MaxSizeMB    int
	AllowedTypes []string // extensions without the dot
}

// ParseAllowedTypes splits a comma separated list such as "pdf,json,txt".
func ParseAllowedTypes(list string) []string {
	var out []string
	for _, t := range strings.Split(list, ",") {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

type IUploadService interface {
	Upload(ctx context.Context, fileName string, data []byte) (*dto.UploadResponse, error)
	UploadBatch(ctx context.Context, files []UploadFile) (*dto.UploadBatchResponse, error)
	Progress(ctx context.Context, fileId string) (*dto.UploadProgressResponse, error)
	Extraction(ctx context.Context, fileId string) (*extraction.Record, error)
}

type uploadService struct {
	storage    storage.BlobStorage
	extraction *extraction.Service
	limits     UploadLimits
	logger     logger.ILogger
}

func NewUploadService(blobs storage.BlobStorage, extractor *extraction.Service, limits UploadLimits, logger logger.ILogger) IUploadService {
	return &uploadService{
		storage:    blobs,
		extraction: extractor,
		limits:     limits,
		logger:     logger,
	}
}

func (s *uploadService) Upload(ctx context.Context, fileName string, data []byte) (*dto.UploadResponse, error) {
	if err := s.check(fileName, len(data)); err != nil {
		return nil, err
	}
	return s.store(ctx, fileName, data)
}

// UploadBatch validates every file before storing any of them.
func (s *uploadService) UploadBatch(ctx context.Context, files []UploadFile) (*dto.UploadBatchResponse, error) {
	if len(files) == 0 {
		return nil, apperror.Validation("no file provided", map[string]string{"files": "is required"})
	}
	if len(files) > maxFilesPerUpload {
		return nil, apperror.Validation("too many files", map[string]string{
			"files": fmt.Sprintf("at most %d files per request", maxFilesPerUpload),
		})
	}
	for _, f := range files {
		if err := s.check(f.Name, len(f.Data)); err != nil {
			return nil, err
		}
	}

	res := &dto.UploadBatchResponse{Files: make([]*dto.UploadResponse, 0, len(files))}
	for _, f := range files {
		uploaded, err := s.store(ctx, f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, uploaded)
	}
	res.UploadResponse = res.Files[0]
	return res, nil
}

func (s *uploadService) store(ctx context.Context, fileName string, data []byte) (*dto.UploadResponse, error) {
	ref, err := s.storage.Save(ctx, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	fileId := uuid.New().String()
	rec := s.extraction.Start(fileId, fileName, ref)

	s.logger.Info("UPLOAD", "File uploaded", map[string]interface{}{
		"file_id":  fileId,
		"filename": fileName,
		"bytes":    len(data),
		"storage":  s.storage.Name(),
	})

	return &dto.UploadResponse{
		FileId:   fileId,
		FileName: fileName,
		Size:     int64(len(data)),
		Status:   rec.Status,
		Message:  "File uploaded successfully. Processing started.",
	}, nil
}

func (s *uploadService) Progress(ctx context.Context, fileId string) (*dto.UploadProgressResponse, error) {
	rec, err := s.extraction.Get(fileId)
	if err != nil {
		return nil, err
	}
	return &dto.UploadProgressResponse{
		FileId:   fileId,
		Progress: rec.Progress,
		Status:   rec.Status,
		Message:  rec.Message,
	}, nil
}

func (s *uploadService) Extraction(ctx context.Context, fileId string) (*extraction.Record, error) {
	return s.extraction.Get(fileId)
}

func (s *uploadService) check(fileName string, size int) error {
	if strings.TrimSpace(fileName) == "" {
		return apperror.Validation("no file provided", map[string]string{"file": "is required"})
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	allowed := false
	for _, t := range s.limits.AllowedTypes {
		if t == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperror.Validation("file type not allowed", map[string]string{
			"file": fmt.Sprintf("%s: allowed types are %s", fileName, strings.Join(s.limits.AllowedTypes, ", ")),
		})
	}

	if s.limits.MaxSizeMB > 0 && size > s.limits.MaxSizeMB*1024*1024 {
		return apperror.Validation("file too large", map[string]string{
			"file": fmt.Sprintf("%s exceeds %dMB", fileName, s.limits.MaxSizeMB),
		})
	}
	return nil
}
