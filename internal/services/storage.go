package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"onlyz-dating-server/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	awscreds "github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores profile pictures and hands back the reference path
// persisted on the profile. MinIO when an endpoint is configured, AWS S3
// otherwise.
type StorageService struct {
	cfg         *config.Config
	s3Client    *s3.S3
	minioClient *minio.Client
	useMinIO    bool
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	service := &StorageService{cfg: cfg}

	if cfg.MinIOEndpoint != "" {
		minioClient, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		service.minioClient = minioClient
		service.useMinIO = true
		return service, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWSRegion),
		Credentials: awscreds.NewStaticCredentials(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	service.s3Client = s3.New(sess)
	return service, nil
}

// UploadProfilePicture stores the image under a unique object name and
// returns the reference path to persist on the profile.
func (s *StorageService) UploadProfilePicture(ctx context.Context, userID uint, file io.Reader, size int64, contentType, originalName string) (string, error) {
	objectName := fmt.Sprintf("profiles/%d_%s%s", userID, uuid.New().String(), strings.ToLower(path.Ext(originalName)))

	if s.useMinIO {
		_, err := s.minioClient.PutObject(ctx, s.cfg.StorageBucket, objectName, file, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload to MinIO: %w", err)
		}
		return objectName, nil
	}

	body, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	_, err = s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.StorageBucket),
		Key:         aws.String(objectName),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return objectName, nil
}

// Delete removes a previously stored object.
func (s *StorageService) Delete(ctx context.Context, reference string) error {
	if s.useMinIO {
		if err := s.minioClient.RemoveObject(ctx, s.cfg.StorageBucket, reference, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete from MinIO: %w", err)
		}
		return nil
	}
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.StorageBucket),
		Key:    aws.String(reference),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// EnsureBucket creates the storage bucket when missing.
func (s *StorageService) EnsureBucket(ctx context.Context) error {
	if s.useMinIO {
		exists, err := s.minioClient.BucketExists(ctx, s.cfg.StorageBucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			if err := s.minioClient.MakeBucket(ctx, s.cfg.StorageBucket, minio.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("failed to create MinIO bucket: %w", err)
			}
		}
		return nil
	}

	_, err := s.s3Client.CreateBucketWithContext(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.cfg.StorageBucket),
	})
	if err != nil && !strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
		return fmt.Errorf("failed to create S3 bucket: %w", err)
	}
	return nil
}
