package uploads

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/angelmondragon/vendorportal/pkg/cloudinary"
	pkgerrors "github.com/angelmondragon/vendorportal/pkg/errors"
)

// 1x1 transparent PNG.
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

type stubUploader struct {
	inputs []cloudinary.UploadInput
	err    error
}

func (s *stubUploader) Upload(_ context.Context, in cloudinary.UploadInput) (*cloudinary.UploadResult, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	return &cloudinary.UploadResult{URL: "https://res.cloudinary.com/demo/image/upload/x.png", PublicID: "x", Format: "png"}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(pixelPNG)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return data
}

func TestUploadSniffsAndForwards(t *testing.T) {
	up := &stubUploader{}
	svc, err := NewService(up, "/vendors/", 1024, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.Upload(context.Background(), "v-1", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.PublicID != "x" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(up.inputs) != 1 {
		t.Fatalf("expected one upload, got %d", len(up.inputs))
	}
	if up.inputs[0].Folder != "vendors/v-1" {
		t.Fatalf("unexpected folder %q", up.inputs[0].Folder)
	}
	if !strings.HasPrefix(up.inputs[0].DataURI, "data:image/png;base64,") {
		t.Fatalf("unexpected data uri prefix %q", up.inputs[0].DataURI[:30])
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	up := &stubUploader{}
	svc, _ := NewService(up, "vendors", 1024, nil)

	_, err := svc.Upload(context.Background(), "v-1", strings.NewReader("%PDF-1.7\n%fake pdf body"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(up.inputs) != 0 {
		t.Fatalf("uploader must not be called for rejected files")
	}
}

func TestUploadEnforcesSizeLimit(t *testing.T) {
	svc, _ := NewService(&stubUploader{}, "vendors", 16, nil)

	_, err := svc.Upload(context.Background(), "v-1", bytes.NewReader(pngBytes(t)))
	if !pkgerrors.IsCode(err, pkgerrors.CodeTooLarge) {
		t.Fatalf("expected too large error, got %v", err)
	}
	if svc.MaxBytes() != 16 {
		t.Fatalf("unexpected max bytes %d", svc.MaxBytes())
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc, _ := NewService(&stubUploader{}, "vendors", 0, nil)
	_, err := svc.Upload(context.Background(), "v-1", bytes.NewReader(nil))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHumanReadableList(t *testing.T) {
	if got := humanReadableList([]string{"A", "B", "C"}); got != "A, B, or C" {
		t.Fatalf("unexpected list %q", got)
	}
	if got := humanReadableList([]string{"A", "B"}); got != "A or B" {
		t.Fatalf("unexpected list %q", got)
	}
}
