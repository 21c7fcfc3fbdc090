package clients

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"helpdesk/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStorage provisions per-ticket folders and uploads attachments on
// Cloudflare R2 (S3-compatible). A "folder" is a key prefix claimed with
// a marker object; the prefix doubles as the folder id stored on the
// ticket.
type ObjectStorage struct {
	bucket     string
	stagingDir string
	urlTTL     time.Duration
	client     *s3.Client
	presigner  *s3.PresignClient
}

func NewObjectStorage() (*ObjectStorage, error) {
	accountID := os.Getenv("R2_ACCOUNT_ID")
	accessKey := os.Getenv("R2_ACCESS_KEY_ID")
	secretKey := os.Getenv("R2_SECRET_ACCESS_KEY")
	bucket := os.Getenv("R2_BUCKET_NAME")
	if accountID == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY atau R2_BUCKET_NAME belum diatur")
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("auto"), // Required by SDK, R2 ignores this
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("gagal load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	staging := os.Getenv("UPLOAD_STAGING_DIR")
	if staging == "" {
		staging = "storage/staging"
	}

	return &ObjectStorage{
		bucket:     bucket,
		stagingDir: staging,
		urlTTL:     7 * 24 * time.Hour,
		client:     client,
		presigner:  s3.NewPresignClient(client),
	}, nil
}

// CreateFolder claims the ticket's key prefix by writing a zero-byte
// marker object under it.
func (o *ObjectStorage) CreateFolder(ctx context.Context, ticket models.Ticket) (string, error) {
	prefix := fmt.Sprintf("tickets/%s/", ticket.TicketNo)
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(prefix + ".keep"),
		Body:        strings.NewReader(""),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("R2 create folder gagal: %w", err)
	}
	return prefix, nil
}

// Upload moves one staged attachment into the ticket folder and returns
// a presigned GET URL for it.
func (o *ObjectStorage) Upload(ctx context.Context, att models.Attachment, folderID string) (string, error) {
	local := filepath.Join(o.stagingDir, filepath.Clean(att.ObjectKey))
	f, err := os.Open(local)
	if err != nil {
		return "", fmt.Errorf("baca file staging %s: %w", local, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(path.Ext(att.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := folderID + att.FileName
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("R2 upload gagal: %w", err)
	}

	presigned, err := o.presigner.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(key),
		},
		func(po *s3.PresignOptions) {
			po.Expires = o.urlTTL
		},
	)
	if err != nil {
		return "", fmt.Errorf("gagal presign R2 URL: %w", err)
	}
	return presigned.URL, nil
}
