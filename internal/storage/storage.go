package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/majidtaherkhani/etf-service/internal/config"
)

// ErrInvalidUploadParameters is returned when an upload carries neither a file
// handle nor both raw content and a filename
var ErrInvalidUploadParameters = errors.New("either 'file' or both 'file_content' and 'filename' must be provided")

const defaultContentType = "application/octet-stream"

// Uploader is the subset of the S3 transfer manager used by Store
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// UploadRequest describes an object to archive. Set File, or set both Content and Filename.
type UploadRequest struct {
	File        *multipart.FileHeader
	Content     []byte
	Filename    string
	ContentType string
}

// Store archives uploaded files in an S3-compatible bucket
type Store struct {
	uploader      Uploader
	bucket        string
	prefix        string
	publicBaseURL string
	publicRead    bool
	newID         func() string
}

// New builds a Store backed by the AWS SDK. Static credentials are used when
// configured, otherwise the default credential chain applies.
func New(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithUploader(manager.NewUploader(client), cfg), nil
}

// NewWithUploader builds a Store around an existing uploader
func NewWithUploader(uploader Uploader, cfg config.StorageConfig) *Store {
	return &Store{
		uploader:      uploader,
		bucket:        cfg.Bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		publicRead:    cfg.PublicRead,
		newID:         uuid.NewString,
	}
}

// Upload stores the object under <prefix>/<uuid>_<filename> and returns its public URL
func (s *Store) Upload(ctx context.Context, req UploadRequest) (string, error) {
	var (
		content     []byte
		filename    string
		contentType = req.ContentType
	)

	switch {
	case req.File != nil:
		f, err := req.File.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		content, err = io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		filename = req.File.Filename
		if ct := req.File.Header.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	case len(req.Content) > 0 && req.Filename != "":
		content = req.Content
		filename = req.Filename
	default:
		return "", ErrInvalidUploadParameters
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	key := s.objectKey(filename)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escapeKey(key), nil
	}
	return out.Location, nil
}

func (s *Store) objectKey(filename string) string {
	name := s.newID() + "_" + path.Base(filename)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
