package services

import (
	"bytes"
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReceiptStorage archives generated receipt PDFs in object storage.
type ReceiptStorage interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	UploadPDF(ctx context.Context, bucketName, objectName string, data []byte) error
	// RemoveOlderThan deletes archived PDFs last modified before cutoff and
	// returns how many were removed.
	RemoveOlderThan(ctx context.Context, bucketName string, cutoff time.Time) (int, error)
	Ping(ctx context.Context, bucketName string) error
}

type minioReceiptStorage struct {
	client *minio.Client
}

func NewMinioReceiptStorage(endpoint, accessKey, secretKey string, useSSL bool) (ReceiptStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioReceiptStorage{client: client}, nil
}

func (m *minioReceiptStorage) EnsureBucketExists(ctx context.Context, bucketName string) error {
	found, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioReceiptStorage) UploadPDF(ctx context.Context, bucketName, objectName string, data []byte) error {
	_, err := m.client.PutObject(ctx, bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	return err
}

func (m *minioReceiptStorage) RemoveOlderThan(ctx context.Context, bucketName string, cutoff time.Time) (int, error) {
	removed := 0
	for object := range m.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return removed, object.Err
		}
		if object.LastModified.After(cutoff) {
			continue
		}
		if err := m.client.RemoveObject(ctx, bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *minioReceiptStorage) Ping(ctx context.Context, bucketName string) error {
	_, err := m.client.BucketExists(ctx, bucketName)
	return err
}
