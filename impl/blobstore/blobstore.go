// Package blobstore implements the client for the remote blob store that
// build artifacts are staged from. Archive URLs like 'gs://bucket/board/build'
// identify a bucket and an object prefix; fetching a key materializes every
// object under the prefix into a local directory.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flatcar-linux/dev-util/impl/config"
	"github.com/flatcar-linux/dev-util/impl/helpers"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	log "github.com/sirupsen/logrus"
)

// S3Store fetches build artifacts from an S3-compatible blob store.
type S3Store struct {
	api *s3.Client
}

// New initialises an S3Store from the blob store configuration. An empty
// endpoint uses the default AWS resolution; otherwise the endpoint is used
// as-is (e.g. a SeaweedFS or minio gateway on the local network).
func New(cfg config.BlobStoreConfig) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Minute}),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if cfg.DisableTLS {
			scheme = "http"
		}
		endpoint = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &S3Store{api: client}, nil
}

// Fetch downloads every object under the archive URL's prefix into destDir,
// preserving paths relative to the prefix. A key with no objects under it
// is an error - an empty staging result would otherwise look like success.
func (s *S3Store) Fetch(ctx context.Context, key string, destDir string) error {
	bucket, prefix, err := helpers.ParseArchiveURL(key)
	if err != nil {
		return err
	}
	start := time.Now()
	objCnt := 0
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing %s: %w", key, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			if err := s.fetchObject(ctx, bucket, *obj.Key, prefix, destDir); err != nil {
				return err
			}
			objCnt++
		}
	}
	if objCnt == 0 {
		return fmt.Errorf("no objects found for %s", key)
	}
	log.Infof("fetched %d object(s) for %s in %s", objCnt, key, time.Since(start))
	return nil
}

func (s *S3Store) fetchObject(ctx context.Context, bucket string, objKey string, prefix string, destDir string) error {
	rel := strings.TrimPrefix(strings.TrimPrefix(objKey, prefix), "/")
	localPath := filepath.Join(destDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return fmt.Errorf("getting %s/%s: %w", bucket, objKey, err)
	}
	defer out.Body.Close()
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		os.Remove(localPath)
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	log.Debugf("fetched %s/%s to %s", bucket, objKey, localPath)
	return nil
}
