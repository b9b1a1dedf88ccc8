package proofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrop/driver-backend/pkg/config"
	pkgerrors "github.com/swiftdrop/driver-backend/pkg/errors"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

type uploadCall struct {
	objectName  string
	contentType string
	size        int
}

type fakeBucket struct {
	calls     []uploadCall
	uploadErr error
	url       string
}

func (f *fakeBucket) Upload(ctx context.Context, objectName, contentType string, data io.Reader) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.calls = append(f.calls, uploadCall{objectName: objectName, contentType: contentType, size: len(body)})
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.url != "" {
		return f.url, nil
	}
	return "https://storage.googleapis.com/delivery-proofs/" + objectName, nil
}

func testGCSConfig() config.GCSConfig {
	return config.GCSConfig{
		ProofBucket:   "delivery-proofs",
		ProfileBucket: "profile-images",
		MaxUploadMB:   1,
		UploadTimeout: time.Second,
	}
}

func newTestService(t *testing.T, proofs, profiles *fakeBucket) *service {
	t.Helper()
	svc, err := NewService(proofs, profiles, testGCSConfig(), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc.(*service)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUploadProof(t *testing.T) {
	proofs := &fakeBucket{}
	svc := newTestService(t, proofs, &fakeBucket{})
	frozen := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return frozen }

	deliveryID := uuid.New()
	result, err := svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     deliveryID,
		ContentType: "image/jpeg",
		Data:        []byte("jpeg-bytes"),
		LocalRef:    "file:///tmp/proof.jpg",
	})
	require.NoError(t, err)
	assert.True(t, result.Uploaded)
	assert.Contains(t, result.URL, "delivery-proofs")

	require.Len(t, proofs.calls, 1)
	expectedName := fmt.Sprintf("%s_%d.jpg", deliveryID, frozen.UnixMilli())
	assert.Equal(t, expectedName, proofs.calls[0].objectName)
	assert.Equal(t, "image/jpeg", proofs.calls[0].contentType)
	assert.Equal(t, len("jpeg-bytes"), proofs.calls[0].size)
}

func TestUploadProof_degradesToLocalRef(t *testing.T) {
	proofs := &fakeBucket{uploadErr: errors.New("503 backend unavailable")}
	svc := newTestService(t, proofs, &fakeBucket{})

	result, err := svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
		LocalRef:    "file:///tmp/proof.png",
	})
	require.NoError(t, err)
	assert.False(t, result.Uploaded)
	assert.Equal(t, "file:///tmp/proof.png", result.URL)
}

func TestUploadProof_failsWithoutLocalRef(t *testing.T) {
	proofs := &fakeBucket{uploadErr: errors.New("503 backend unavailable")}
	svc := newTestService(t, proofs, &fakeBucket{})

	_, err := svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestUploadProof_validation(t *testing.T) {
	svc := newTestService(t, &fakeBucket{}, &fakeBucket{})

	_, err := svc.UploadProof(context.Background(), UploadInput{
		ContentType: "image/jpeg",
		Data:        []byte("x"),
	})
	assertValidationError(t, err)

	_, err = svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "image/jpeg",
	})
	assertValidationError(t, err)

	_, err = svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "application/pdf",
		Data:        []byte("x"),
	})
	assertValidationError(t, err)

	oversized := make([]byte, 1024*1024+1)
	_, err = svc.UploadProof(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "image/jpeg",
		Data:        oversized,
	})
	assertValidationError(t, err)
}

func TestUploadProfileImage_usesProfileBucket(t *testing.T) {
	proofs := &fakeBucket{}
	profiles := &fakeBucket{url: "https://storage.googleapis.com/profile-images/obj.webp"}
	svc := newTestService(t, proofs, profiles)

	result, err := svc.UploadProfileImage(context.Background(), UploadInput{
		OwnerID:     uuid.New(),
		ContentType: "image/webp",
		Data:        []byte("webp-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, result.Uploaded)
	assert.Empty(t, proofs.calls)
	require.Len(t, profiles.calls, 1)
}
