package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/angelmondragon/vendorportal/pkg/cloudinary"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
	"github.com/angelmondragon/vendorportal/pkg/logger"
)

const defaultMaxBytes int64 = 10 << 20

type uploader interface {
	Upload(ctx context.Context, in cloudinary.UploadInput) (*cloudinary.UploadResult, error)
}

// Service validates vendor images and hands them to the image host.
type Service interface {
	Upload(ctx context.Context, vendorID string, file io.Reader) (*cloudinary.UploadResult, error)
	MaxBytes() int64
}

type service struct {
	uploader uploader
	folder   string
	maxBytes int64
	logg     *logger.Logger
}

// NewService builds the upload service. Images land under folder/<vendorID>.
func NewService(up uploader, folder string, maxBytes int64, logg *logger.Logger) (Service, error) {
	if up == nil {
		return nil, fmt.Errorf("image uploader required")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		uploader: up,
		folder:   strings.Trim(strings.TrimSpace(folder), "/"),
		maxBytes: maxBytes,
		logg:     logg,
	}, nil
}

func (s *service) MaxBytes() int64 { return s.maxBytes }

func (s *service) Upload(ctx context.Context, vendorID string, file io.Reader) (*cloudinary.UploadResult, error) {
	if file == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	payload, err := io.ReadAll(io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(payload)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes)).
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}

	mimeType, ok := sniffImageType(payload)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file must be "+allowedDescription).
			WithDetails(map[string]any{"detected": mimeType})
	}

	folder := s.folder
	if vendorID != "" {
		folder = path.Join(folder, vendorID)
	}
	result, err := s.uploader.Upload(ctx, cloudinary.UploadInput{
		DataURI: cloudinary.ToDataURI(mimeType, payload),
		Folder:  folder,
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"public_id": result.PublicID,
		"bytes":     len(payload),
		"mime":      mimeType,
	}), "image uploaded")
	return result, nil
}
