package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vaultdrive/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
	chunkSize      = 10 * 1024 * 1024 // 10MB на часть multipart загрузки
	maxDeleteBatch = 1000             // лимит S3 DeleteObjects на один запрос
)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client *s3.Client
	bucket string
}

// NewClient создает новый экземпляр клиента S3
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	// Создаем конфигурацию AWS
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	// Создаем клиента с кастомными настройками
	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client: client,
		bucket: conf.Bucket,
	}

	// Проверяем подключение к бакету
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// UploadStream потоково загружает содержимое в S3. Короткий поток уходит
// одним PutObject, все что длиннее одного чанка - через multipart загрузку
// без буферизации целиком.
func (h *Client) UploadStream(ctx context.Context, key string, reader io.Reader) (int64, error) {
	if key == "" || reader == nil {
		return 0, fmt.Errorf("key and reader are required")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	// Первый чанк читаем заранее: если поток короче одного чанка,
	// multipart не нужен
	buf := make([]byte, chunkSize)
	n, err := io.ReadFull(reader, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		_, putErr := h.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(h.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(buf[:n]),
		})
		if putErr != nil {
			return 0, fmt.Errorf("%w: failed to upload object: %v", domain.ErrStorageUnavailable, putErr)
		}
		return int64(n), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read upload stream: %w", err)
	}

	uploadID, err := h.createMultipartUpload(ctx, key)
	if err != nil {
		return 0, err
	}

	var completedParts []types.CompletedPart
	var total int64
	partNumber := 1

	for n > 0 {
		etag, err := h.uploadPart(ctx, uploadID, key, partNumber, buf[:n])
		if err != nil {
			h.abortMultipartUpload(ctx, uploadID, key)
			return 0, err
		}

		completedParts = append(completedParts, types.CompletedPart{
			ETag:       aws.String(etag),
			PartNumber: aws.Int32(int32(partNumber)),
		})
		total += int64(n)
		partNumber++

		n, err = io.ReadFull(reader, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			h.abortMultipartUpload(ctx, uploadID, key)
			return 0, fmt.Errorf("failed to read upload stream: %w", err)
		}
	}

	input := &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(h.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	}

	if _, err := h.client.CompleteMultipartUpload(ctx, input); err != nil {
		h.abortMultipartUpload(ctx, uploadID, key)
		return 0, fmt.Errorf("%w: failed to complete multipart upload: %v", domain.ErrStorageUnavailable, err)
	}

	return total, nil
}

// GetObject получает объект из S3
func (h *Client) GetObject(ctx context.Context, key string) (S3Object, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}

	result, err := h.client.GetObject(ctx, input)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: failed to get object: %v", domain.ErrStorageUnavailable, err)
	}

	return &s3Object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
		contentType:   aws.ToString(result.ContentType),
	}, nil
}

// GetObjectRange получает часть объекта из S3
func (h *Client) GetObjectRange(ctx context.Context, key string, start, end int64) (S3Object, error) {
	log.Printf("[S3] Starting streaming request for key: %s (range: %d-%d)", key, start, end)
	startTime := time.Now()

	rangeHeader := fmt.Sprintf("bytes=%d-%d", start, end)
	input := &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Range:  aws.String(rangeHeader),
	}

	result, err := h.client.GetObject(ctx, input)
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("[S3] Object not found: %s", key)
			return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, key)
		}
		log.Printf("[S3] Error getting object range: %v", err)
		return nil, fmt.Errorf("%w: failed to get object range: %v", domain.ErrStorageUnavailable, err)
	}

	elapsed := time.Since(startTime)
	log.Printf("[S3] Stream started successfully. Time to first byte: %v", elapsed)

	return &s3Object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
		contentType:   aws.ToString(result.ContentType),
	}, nil
}

// DeleteObjects массово удаляет объекты. Ключи режутся на пакеты по лимиту
// S3; отсутствующий объект считается удаленным, частичные отказы логируются,
// возвращается число подтвержденных удалений.
func (h *Client) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	deleted := 0
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		result, err := h.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(h.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(false),
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("%w: failed to delete objects: %v", domain.ErrStorageUnavailable, err)
		}

		deleted += len(result.Deleted)
		for _, derr := range result.Errors {
			log.Printf("[S3] failed to delete object %s: %s", aws.ToString(derr.Key), aws.ToString(derr.Message))
		}
	}

	return deleted, nil
}

// createMultipartUpload инициализирует загрузку по частям
func (h *Client) createMultipartUpload(ctx context.Context, key string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}

	result, err := h.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create multipart upload: %v", domain.ErrStorageUnavailable, err)
	}

	return *result.UploadId, nil
}

// uploadPart загружает часть файла
func (h *Client) uploadPart(ctx context.Context, uploadID string, key string, partNumber int, data []byte) (string, error) {
	input := &s3.UploadPartInput{
		Bucket:     aws.String(h.bucket),
		Key:        aws.String(key),
		PartNumber: aws.Int32(int32(partNumber)),
		UploadId:   aws.String(uploadID),
		Body:       bytes.NewReader(data),
	}

	result, err := h.client.UploadPart(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: failed to upload part %d: %v", domain.ErrStorageUnavailable, partNumber, err)
	}

	return *result.ETag, nil
}

// abortMultipartUpload отменяет загрузку по частям
func (h *Client) abortMultipartUpload(ctx context.Context, uploadID string, key string) {
	input := &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(h.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	}

	if _, err := h.client.AbortMultipartUpload(ctx, input); err != nil {
		log.Printf("[S3] failed to abort multipart upload %s: %v", uploadID, err)
	}
}
