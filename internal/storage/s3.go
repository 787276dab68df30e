// Package storage issues pre-signed upload URLs for todo attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrMissingKey is returned when no object key is given.
var ErrMissingKey = errors.New("object key is missing")

// PresignAPI is the subset of s3.PresignClient used by Issuer.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ PresignAPI = (*s3.PresignClient)(nil)

// Issuer signs PutObject URLs for one bucket.
// It keeps no state and never checks that the key belongs to a stored item.
type Issuer struct {
	presigner PresignAPI
	bucket    string
	expiry    time.Duration
}

// NewIssuer creates an Issuer for bucket with the given URL lifetime.
func NewIssuer(presigner PresignAPI, bucket string, expiry time.Duration) *Issuer {
	return &Issuer{
		presigner: presigner,
		bucket:    bucket,
		expiry:    expiry,
	}
}

// IssueUploadURL returns a URL that allows a single PUT of object todoID
// until the configured expiry.
func (i *Issuer) IssueUploadURL(ctx context.Context, todoID string) (string, error) {
	if todoID == "" {
		return "", ErrMissingKey
	}

	req, err := i.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(i.bucket),
		Key:    aws.String(todoID),
	}, s3.WithPresignExpires(i.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}

	return req.URL, nil
}

// AttachmentURL is the public address of the object stored under todoID.
func (i *Issuer) AttachmentURL(todoID string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", i.bucket, url.PathEscape(todoID))
}

// Expiry returns the lifetime of issued URLs.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}
