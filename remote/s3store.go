package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// multipartBufferTarget is the plaintext size buffered per UploadPart
// call, matching original_source/remote/src/s3.rs's BUFFER_TARGET
// (6 MiB) for S3Multi.
const multipartBufferTarget = 6 * 1024 * 1024

// S3Store is the remote.Store driver over an S3-compatible bucket,
// grounded on original_source/remote/src/s3.rs.
type S3Store struct {
	client *s3.Client
	bucket string
	ctx    context.Context
}

func NewS3Store(ctx context.Context, client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket, ctx: ctx}
}

func (s *S3Store) List(kind Kind) ([]string, error) {
	prefix := string(kind) + "/"
	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("remote: list %s: %w", kind, err)
		}
		for _, obj := range page.Contents {
			names = append(names, (*obj.Key)[len(prefix):])
		}
	}
	return names, nil
}

func (s *S3Store) Read(kind Kind, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(kind, name)),
	})
	if err != nil {
		return nil, fmt.Errorf("remote: get %s/%s: %w", kind, name, err)
	}
	return out.Body, nil
}

func (s *S3Store) Write(kind Kind, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key(kind, name)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("remote: put %s/%s: %w", kind, name, err)
	}
	return nil
}

func (s *S3Store) WriteMulti(kind Kind, name string) (io.WriteCloser, error) {
	objKey := key(kind, name)
	created, err := s.client.CreateMultipartUpload(s.ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return nil, fmt.Errorf("remote: create multipart upload %s: %w", objKey, err)
	}
	return &s3MultiWriter{
		s3:       s,
		key:      objKey,
		uploadID: *created.UploadId,
	}, nil
}

// s3MultiWriter buffers plaintext up to multipartBufferTarget before
// issuing an UploadPart call, mirroring original_source's S3Multi.
type s3MultiWriter struct {
	s3       *S3Store
	key      string
	uploadID string
	buf      bytes.Buffer
	partNum  int32
	parts    []types.CompletedPart
	aborted  bool
}

func (w *s3MultiWriter) Write(p []byte) (int, error) {
	total := len(p)
	w.buf.Write(p)
	for w.buf.Len() >= multipartBufferTarget {
		if err := w.flushPart(w.buf.Next(multipartBufferTarget)); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (w *s3MultiWriter) flushPart(chunk []byte) error {
	w.partNum++
	out, err := w.s3.client.UploadPart(w.s3.ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.s3.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(w.partNum),
		Body:       bytes.NewReader(chunk),
	})
	if err != nil {
		w.abort()
		return fmt.Errorf("remote: upload part %d of %s: %w", w.partNum, w.key, err)
	}
	w.parts = append(w.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(w.partNum),
	})
	return nil
}

func (w *s3MultiWriter) abort() {
	if w.aborted {
		return
	}
	w.aborted = true
	_, _ = w.s3.client.AbortMultipartUpload(w.s3.ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.s3.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
}

func (w *s3MultiWriter) Close() error {
	if w.buf.Len() > 0 || w.partNum == 0 {
		if err := w.flushPart(w.buf.Bytes()); err != nil {
			return err
		}
		w.buf.Reset()
	}
	_, err := w.s3.client.CompleteMultipartUpload(w.s3.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(w.s3.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: w.parts,
		},
	})
	if err != nil {
		w.abort()
		return fmt.Errorf("remote: complete multipart upload %s: %w", w.key, err)
	}
	return nil
}
