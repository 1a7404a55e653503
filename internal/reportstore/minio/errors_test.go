package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/reportstore"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"wrapped cancel", fmt.Errorf("put: %w", context.Canceled), errs.ErrKindTimeout},
		{"missing key", miniogo.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, errs.ErrKindNotFound},
		{"missing bucket with odd status", miniogo.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusOK}, errs.ErrKindNotFound},
		{"bad signature", miniogo.ErrorResponse{Code: "SignatureDoesNotMatch", StatusCode: http.StatusForbidden}, errs.ErrKindPermissionDenied},
		{"forbidden status", miniogo.ErrorResponse{StatusCode: http.StatusForbidden}, errs.ErrKindPermissionDenied},
		{"bad bucket name", miniogo.ErrorResponse{Code: "InvalidBucketName"}, errs.ErrKindInvalidInput},
		{"slow down", miniogo.ErrorResponse{Code: "SlowDown", StatusCode: http.StatusServiceUnavailable}, errs.ErrKindTimeout},
		{"network", errors.New("dial tcp: connection refused"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "op")
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.err, got.Cause)
		})
	}

	assert.Nil(t, mapError(nil, "op"))
}

func TestAlreadyOwned(t *testing.T) {
	assert.True(t, alreadyOwned(miniogo.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}))
	assert.True(t, alreadyOwned(miniogo.ErrorResponse{Code: "BucketAlreadyExists"}))
	assert.False(t, alreadyOwned(miniogo.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, alreadyOwned(errors.New("boom")))
}

func TestNew_EmptyBucket(t *testing.T) {
	_, err := New(context.Background(), &reportstore.Config{Endpoint: "localhost:9000"})
	assert.True(t, errs.IsInvalidInput(err))
}
