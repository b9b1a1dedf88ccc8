package proofs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/config"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

// extensionsByContentType lists the photo formats the driver app submits.
var extensionsByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type uploader interface {
	Upload(ctx context.Context, objectName, contentType string, data io.Reader) (string, error)
}

// Service stores proof-of-delivery photos and profile images in GCS.
type Service interface {
	UploadProof(ctx context.Context, input UploadInput) (*UploadResult, error)
	UploadProfileImage(ctx context.Context, input UploadInput) (*UploadResult, error)
}

type service struct {
	proofs   uploader
	profiles uploader
	maxBytes int64
	timeout  time.Duration
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the proof storage buckets.
func NewService(proofs, profiles uploader, cfg config.GCSConfig, logg *logger.Logger) (Service, error) {
	if proofs == nil {
		return nil, fmt.Errorf("proof bucket required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile bucket required")
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if cfg.UploadTimeout <= 0 {
		return nil, fmt.Errorf("upload timeout must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		proofs:   proofs,
		profiles: profiles,
		maxBytes: int64(cfg.MaxUploadMB) * 1024 * 1024,
		timeout:  cfg.UploadTimeout,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// UploadInput carries photo bytes plus the owning record id. LocalRef is the
// device-side reference used as a degraded fallback when the upload fails.
type UploadInput struct {
	OwnerID     uuid.UUID
	ContentType string
	Data        []byte
	LocalRef    string
}

// UploadResult reports where the photo ended up. Uploaded is false when the
// store rejected the write and the local reference was kept instead.
type UploadResult struct {
	URL      string `json:"url"`
	Uploaded bool   `json:"uploaded"`
}

func (s *service) UploadProof(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return s.upload(ctx, s.proofs, input)
}

func (s *service) UploadProfileImage(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return s.upload(ctx, s.profiles, input)
}

func (s *service) upload(ctx context.Context, bucket uploader, input UploadInput) (*UploadResult, error) {
	if input.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "photo data required")
	}
	if int64(len(input.Data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("photo exceeds %d bytes", s.maxBytes))
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, ok := extensionsByContentType[contentType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported photo content type").
			WithDetails(map[string]any{"content_type": input.ContentType})
	}

	objectName := fmt.Sprintf("%s_%d.%s", input.OwnerID, s.now().UnixMilli(), ext)

	uploadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	url, err := bucket.Upload(uploadCtx, objectName, contentType, bytes.NewReader(input.Data))
	if err != nil {
		if strings.TrimSpace(input.LocalRef) == "" {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "photo upload failed")
		}
		s.logg.Warn(ctx, "photo upload failed, keeping local reference: "+err.Error())
		return &UploadResult{URL: input.LocalRef, Uploaded: false}, nil
	}

	return &UploadResult{URL: url, Uploaded: true}, nil
}
