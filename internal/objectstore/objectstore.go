// Package objectstore defines the opaque object-store contract C5 relies
// on (§4.5, §6) and an S3-backed implementation grounded on the
// aws-sdk-go v1 session pattern the rest of the pack uses for SES/S3
// clients (magda-api's internal/services/email.go).
package objectstore

import (
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Store is the opaque object-store contract: existence check, upload with
// content-type and cache-control, metadata-only head, delete, a public URL
// builder (§4.5 "Object-store contract is opaque to C5"), and Download —
// needed symmetrically whenever analysis has to run against a Track whose
// file pointer already lives in the object store (§9 open question on
// S3-resident analysis).
type Store interface {
	Exists(key string) (bool, error)
	Upload(key string, body io.Reader, size int64, contentType string) error
	Head(key string) (size int64, exists bool, err error)
	Download(key, destPath string) error
	Delete(key string) error
	PublicURL(key string) string
}

// S3Store implements Store against a single bucket, optionally fronted by
// a CDN domain for PublicURL.
type S3Store struct {
	client    *s3.S3
	bucket    string
	cdnDomain string
}

// NewS3Store builds an S3-backed Store from a region/bucket/CDN triple,
// following the session.Must(session.NewSession(...)) construction the
// pack's AWS clients use.
func NewS3Store(region, bucket, cdnDomain string) *S3Store {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(region),
	}))
	return &S3Store{
		client:    s3.New(sess),
		bucket:    bucket,
		cdnDomain: cdnDomain,
	}
}

func (s *S3Store) Exists(key string) (bool, error) {
	_, exists, err := s.Head(key)
	return exists, err
}

func (s *S3Store) Upload(key string, body io.Reader, size int64, contentType string) error {
	readerAt, ok := body.(io.ReadSeeker)
	var uploadBody io.ReadSeeker
	if ok {
		uploadBody = readerAt
	} else {
		return fmt.Errorf("objectstore: upload body must support seeking for content-length framing")
	}

	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          uploadBody,
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("objectstore: upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Head(key string) (int64, bool, error) {
	out, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("objectstore: head %s: %w", key, err)
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return size, true, nil
}

// Download fetches key into destPath using an s3manager.Downloader's
// concurrent range-get strategy, the same helper the aws-sdk-go v1
// ecosystem uses for large-object retrieval.
func (s *S3Store) Download(key, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("objectstore: create %s: %w", destPath, err)
	}
	defer f.Close()

	downloader := s3manager.NewDownloaderWithClient(s.client)
	_, err = downloader.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: download %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(key string) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objectstore: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
}

func isNotFound(err error) bool {
	type awsErr interface {
		Code() string
	}
	if ae, ok := err.(awsErr); ok {
		return ae.Code() == s3.ErrCodeNoSuchKey || ae.Code() == "NotFound"
	}
	return false
}
