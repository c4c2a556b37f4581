package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source is where a manifest is read from.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads manifests from a local directory.
type DirSource string

// Open implements Source.
func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(string(d), filepath.FromSlash(name)))
}

// S3API is the part of *s3.Client that S3Source uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads manifests published next to the assets in an S3 bucket.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	src := assets.S3Source{Client: s3.NewFromConfig(cfg), Bucket: "static", Prefix: "releases/42/"}
//	m, err := assets.LoadFrom(ctx, src, "manifest.json")
type S3Source struct {
	Client S3API
	Bucket string
	Prefix string
}

// Open implements Source.
func (s S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(path.Join(s.Prefix, name)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.Bucket, path.Join(s.Prefix, name), err)
	}
	return out.Body, nil
}

// maxManifestSize bounds how much of a manifest object is read.
const maxManifestSize = 16 << 20

// LoadFrom reads and parses the manifest called name from src.
func LoadFrom(ctx context.Context, src Source, name string) (*Manifest, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxManifestSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxManifestSize {
		return nil, fmt.Errorf("%s: manifest larger than %d bytes", name, maxManifestSize)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}
