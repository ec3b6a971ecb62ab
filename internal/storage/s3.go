package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"fileconverter/internal/domain"
	"fileconverter/internal/infra"
)

const (
	uploadPrefix    = "uploads/"
	convertedPrefix = "converted/"
)

// S3Store keeps artifacts in an S3 bucket and stages them onto a local
// scratch directory for the exec-based converters.
type S3Store struct {
	client     *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
	bucket     string
	scratchDir string
	workDir    string
}

// NewS3Store builds an S3-backed store from configuration. scratchDir holds
// staged inputs; a work subdirectory receives converter output before it is
// uploaded.
func NewS3Store(cfg *infra.Config, scratchDir string) (*S3Store, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("storage: S3_BUCKET is required for the s3 backend")
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
	}
	if cfg.S3UsePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	workDir := filepath.Join(scratchDir, "work")
	for _, dir := range []string{scratchDir, workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure scratch dir %s: %w", dir, err)
		}
	}

	sess := session.Must(session.NewSession(awsCfg))
	return &S3Store{
		client:     s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     cfg.S3Bucket,
		scratchDir: scratchDir,
		workDir:    workDir,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, r io.Reader, suggestedExt string) (string, int64, error) {
	name := newStoredName(suggestedExt)

	// Spool to scratch first so the byte count is known and uploads are
	// retry-safe against a seekable body.
	local := filepath.Join(s.scratchDir, name)
	f, err := os.Create(local)
	if err != nil {
		return "", 0, fmt.Errorf("%w: spool upload: %v", domain.ErrStorage, err)
	}
	size, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(local)
		return "", 0, fmt.Errorf("%w: spool upload: %v", domain.ErrStorage, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		_ = os.Remove(local)
		return "", 0, fmt.Errorf("%w: rewind spool: %v", domain.ErrStorage, err)
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(uploadPrefix + name),
		Body:   f,
	})
	_ = f.Close()
	if err != nil {
		_ = os.Remove(local)
		return "", 0, fmt.Errorf("%w: upload to s3: %v", domain.ErrStorage, err)
	}
	return name, size, nil
}

func (s *S3Store) Exists(ctx context.Context, storedName string) bool {
	name, ok := sanitizeName(storedName)
	if !ok {
		return false
	}
	return s.headOK(ctx, uploadPrefix+name)
}

func (s *S3Store) Stage(ctx context.Context, storedName string) (string, error) {
	name, ok := sanitizeName(storedName)
	if !ok {
		return "", fmt.Errorf("%w: invalid stored name %q", domain.ErrStorage, storedName)
	}
	local := filepath.Join(s.scratchDir, name)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("%w: create staging file: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	_, err = s.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(uploadPrefix + name),
	})
	if err != nil {
		_ = os.Remove(local)
		return "", fmt.Errorf("%w: download from s3: %v", domain.ErrStorage, err)
	}
	return local, nil
}

func (s *S3Store) WorkDir() string {
	return s.workDir
}

func (s *S3Store) Keep(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: open converted file: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(convertedPrefix + name),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload converted file: %v", domain.ErrStorage, err)
	}
	return name, nil
}

func (s *S3Store) HasOutput(ctx context.Context, outputName string) bool {
	name, ok := sanitizeName(outputName)
	if !ok {
		return false
	}
	return s.headOK(ctx, convertedPrefix+name)
}

func (s *S3Store) Output(ctx context.Context, outputName string) (io.ReadCloser, int64, error) {
	name, ok := sanitizeName(outputName)
	if !ok {
		return nil, 0, fmt.Errorf("%w: invalid output name %q", domain.ErrStorage, outputName)
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(convertedPrefix + name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, domain.ErrArtifactMissing
		}
		return nil, 0, fmt.Errorf("%w: get converted object: %v", domain.ErrStorage, err)
	}
	return out.Body, aws.Int64Value(out.ContentLength), nil
}

func (s *S3Store) headOK(ctx context.Context, key string) bool {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
