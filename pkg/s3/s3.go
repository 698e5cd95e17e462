package s3

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"BackgroundRemovalAPI/internal/entity"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"golang.org/x/net/context"
)

const (
	processedSuffix = "_processed.png"
	pngContentType  = "image/png"
)

type ItfS3 interface {
	UploadImage(ctx context.Context, data []byte) (*entity.StoredObject, error)
	DeleteFile(ctx context.Context, key string) error
	PublicURL(key string) string
}

type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
}

type s3Client struct {
	client     s3iface.S3API
	bucketName string
	region     string
}

func New(cfg Config) (ItfS3, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3: region is required")
	}

	sess, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	return NewWithClient(s3.New(sess), cfg.BucketName, cfg.Region), nil
}

func NewWithClient(client s3iface.S3API, bucketName, region string) ItfS3 {
	return &s3Client{
		client:     client,
		bucketName: bucketName,
		region:     region,
	}
}

// UploadImage stores a PNG under a fresh random key and returns its public URL.
func (s *s3Client) UploadImage(ctx context.Context, data []byte) (*entity.StoredObject, error) {
	key, err := generateObjectKey()
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(pngContentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &entity.StoredObject{
		Key: key,
		URL: s.PublicURL(key),
	}, nil
}

func (s *s3Client) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key)
}

// DeleteFile accepts either a bare key or a public URL produced by PublicURL.
func (s *s3Client) DeleteFile(ctx context.Context, key string) error {
	decodedKey, err := url.QueryUnescape(extractKeyFromS3Url(key))
	if err != nil {
		return fmt.Errorf("failed to decode key: %w", err)
	}
	if decodedKey == "" {
		return errors.New("s3: key is required")
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(decodedKey),
	})

	return err
}

func extractKeyFromS3Url(fileUrl string) string {
	parts := strings.SplitN(fileUrl, ".amazonaws.com/", 2)
	if len(parts) > 1 {
		return parts[1]
	}
	return fileUrl
}

func newSession(cfg Config) (*session.Session, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

func generateObjectKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String() + processedSuffix, nil
}
