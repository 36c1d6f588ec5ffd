// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package kss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/logger"
)

// presignExpiry is the validity of pre-signed GET URLs
const presignExpiry = 24 * time.Hour

// s3Client is the part of the S3 API the driver uses; *s3.Client implements it
type s3Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 is the implementation of the KSS driver for AWS S3
type S3 struct {
	client      s3Client
	uploader    *manager.Uploader
	presigner   *s3.PresignClient
	bucket      string
	baseKeyName string
	publicURL   string
}

// NewS3 returns a new S3
func NewS3(ctx context.Context, kssConfig S3Configuration) (*S3, error) {
	if kssConfig.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}

	options := []func(*config.LoadOptions) error{config.WithRegion(kssConfig.AWSRegion)}
	if kssConfig.AccessID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(kssConfig.AccessID, kssConfig.AccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if kssConfig.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(kssConfig.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Default().Debugln("KSS S3 enabled for bucket", kssConfig.AWSBucketName)
	s := newS3WithClient(client, kssConfig)
	s.presigner = s3.NewPresignClient(client)
	return s, nil
}

func newS3WithClient(client s3Client, kssConfig S3Configuration) *S3 {
	return &S3{
		client:      client,
		uploader:    manager.NewUploader(client),
		bucket:      kssConfig.AWSBucketName,
		baseKeyName: kssConfig.KeyPrefix,
		publicURL:   strings.TrimSuffix(kssConfig.PublicURL, "/"),
	}
}

// Upload implements baas.BlobStore. Large bodies are uploaded in parts.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload key '%s': %w", key, err)
	}
	logger.FromContext(ctx).Infoln("Uploaded ", s.baseKeyName+key)
	return nil
}

// Download implements baas.BlobStore
func (s *S3) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, "", baas.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("cannot get key '%s': %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// Delete implements baas.BlobStore
func (s *S3) Delete(ctx context.Context, key string) error {
	rlog := logger.FromContext(ctx)
	rlog.Infoln("Deleting ", s.baseKeyName+key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
	})
	if err != nil {
		rlog.Error("Could not delete ", s.baseKeyName+key)
		return err
	}
	return nil
}

// List implements baas.BlobStore. The returned keys are relative to the key prefix.
func (s *S3) List(ctx context.Context, prefix string) ([]baas.BlobInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.baseKeyName + prefix),
	})
	var infos []baas.BlobInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logger.FromContext(ctx).Error("Could not ListObjectsV2 from ", s.bucket)
			return nil, err
		}
		for _, item := range page.Contents {
			infos = append(infos, baas.BlobInfo{
				Key:          strings.TrimPrefix(aws.ToString(item.Key), s.baseKeyName),
				Size:         item.Size,
				LastModified: aws.ToTime(item.LastModified),
			})
		}
	}
	return infos, nil
}

// URL implements baas.BlobStore. Without a public URL it returns a pre-signed GET URL,
// or an empty string if presigning fails.
func (s *S3) URL(key string) string {
	if s.publicURL != "" || s.presigner == nil {
		segments := strings.Split(s.baseKeyName+key, "/")
		for i := range segments {
			segments[i] = url.PathEscape(segments[i])
		}
		return s.publicURL + "/" + strings.Join(segments, "/")
	}
	resp, err := s.presigner.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		logger.Default().WithError(err).Errorf("Error 1206: cannot presign key '%s'", key)
		return ""
	}
	return resp.URL
}
