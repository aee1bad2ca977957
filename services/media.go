package services

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"

	"github.com/mathpal-app/mathpal_api/dto"
	"github.com/mathpal-app/mathpal_api/shared"
)

// MediaService stores photographed problem images. The chat flow references
// the returned URL as the message's image payload; eviction later strips it
// from old messages without touching the object store.
type MediaService struct {
	context.DefaultService
	minioSvc *MinIOService
}

const MEDIA_SVC = "media_svc"

const (
	maxProblemImageBytes = 5 * 1024 * 1024
	problemImageURLTTL   = 24 * time.Hour
)

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

func (svc *MediaService) UploadProblemImage(file *multipart.FileHeader) (*dto.MediaUploadResponse, error) {
	if !svc.minioSvc.Available() {
		return nil, shared.NewAppError(http.StatusServiceUnavailable, nil, "Media storage unavailable")
	}

	if !svc.isValidImageFile(file.Filename) {
		return nil, shared.NewBadRequestError(nil, "Invalid image file format. Supported: JPG, PNG, WEBP")
	}

	if file.Size > maxProblemImageBytes {
		return nil, shared.NewBadRequestError(nil, "Image file too large. Maximum size: 5MB")
	}

	src, err := file.Open()
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Failed to read uploaded file")
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	objectName := fmt.Sprintf("problems/%s%s", uuid.New().String(), ext)
	contentType := imageContentType(ext)

	if _, err := svc.minioSvc.UploadFile(objectName, src, file.Size, contentType); err != nil {
		return nil, err
	}

	url, err := svc.minioSvc.GetFileURL(objectName, problemImageURLTTL)
	if err != nil {
		return nil, err
	}

	return &dto.MediaUploadResponse{
		ObjectName:  objectName,
		URL:         url,
		ContentType: contentType,
		Size:        file.Size,
	}, nil
}

func (svc *MediaService) isValidImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

func imageContentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
