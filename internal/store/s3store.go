package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultPresignExpiry is how long a generated access URL stays valid.
const DefaultPresignExpiry = 15 * time.Minute

// extByMIME maps the MIME types this service produces/accepts onto the
// persisted filename extension.
var extByMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// S3Store persists images in an S3 bucket under the generated/ and
// edits/ prefixes, matching the layout the rest of this domain's
// services use for uploaded media.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

// NewS3Store builds an S3Store against bucket, using client for
// GetObject/PutObject and a presign client derived from it for
// generating access URLs.
func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		expiry:    DefaultPresignExpiry,
	}
}

func (s *S3Store) ReadByName(ctx context.Context, name string) ([]byte, string, error) {
	if !ValidName(name) {
		return nil, "", fmt.Errorf("%w: %q", ErrBadFileName, name)
	}

	// SaveTo writes under dest prefixes, so look at the bucket root and
	// both persisted prefixes.
	var out *s3.GetObjectOutput
	for _, prefix := range []string{"", string(DestGenerated) + "/", string(DestEdits) + "/"} {
		key := prefix + name
		var err error
		out, err = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			break
		}
		var notFound *smithyhttp.ResponseError
		if !errors.As(err, &notFound) || notFound.HTTPStatusCode() != 404 {
			return nil, "", fmt.Errorf("s3 get object %s: %w", key, err)
		}
		out = nil
	}
	if out == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read s3 object body: %w", err)
	}

	mime := ""
	if out.ContentType != nil {
		mime = *out.ContentType
	}
	return data, mime, nil
}

func (s *S3Store) SaveTo(ctx context.Context, dest Dest, data []byte, mime string) (Saved, error) {
	ext, ok := extByMIME[mime]
	if !ok {
		return Saved{}, fmt.Errorf("store: unsupported mime type %q", mime)
	}

	filename := uuid.NewString() + "." + ext
	key := fmt.Sprintf("%s/%s", dest, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return Saved{}, fmt.Errorf("s3 put object %s: %w", key, err)
	}

	url, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.expiry
	})
	if err != nil {
		return Saved{}, fmt.Errorf("presign get object %s: %w", key, err)
	}

	log.Debug().Str("key", key).Str("dest", string(dest)).Msg("store: saved object")
	return Saved{Filename: filename, URL: url.URL, MIME: mime}, nil
}
