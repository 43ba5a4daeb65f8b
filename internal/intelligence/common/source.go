package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ObjectScheme prefixes model paths stored in object storage.
const ObjectScheme = "s3://"

// ObjectFetcher streams an object from a bucket.  The MinIO client in
// internal/infrastructure/storage/minio implements it.
type ObjectFetcher interface {
	FetchObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// IsObjectURI reports whether p names an object-storage location.
func IsObjectURI(p string) bool {
	return strings.HasPrefix(p, ObjectScheme)
}

// ParseObjectURI splits "s3://bucket/key/with/slashes" into bucket and key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", fmt.Errorf("%w: %q is not an %s URI", ErrInvalidInput, uri, ObjectScheme)
	}
	rest := strings.TrimPrefix(uri, ObjectScheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q must look like s3://bucket/key", ErrInvalidInput, uri)
	}
	return bucket, key, nil
}

// OpenModel opens a local file or, for s3:// locations, fetches the object
// through fetcher.  The caller closes the returned reader.
func OpenModel(ctx context.Context, location string, fetcher ObjectFetcher) (io.ReadCloser, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty model location", ErrInvalidInput)
	}
	if !IsObjectURI(location) {
		f, err := os.Open(location)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: %s requires object storage to be configured", ErrModelNotLoaded, location)
	}
	bucket, key, err := ParseObjectURI(location)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchObject(ctx, bucket, key)
}

// ReadModel reads the whole model at location and reports the load to m.
func ReadModel(ctx context.Context, location string, fetcher ObjectFetcher, m IntelligenceMetrics) ([]byte, error) {
	start := time.Now()
	data, err := readAll(ctx, location, fetcher)
	if m != nil {
		source := "file"
		if IsObjectURI(location) {
			source = "object"
		}
		m.RecordModelLoad(ctx, BaseName(location), source, msSince(start), err == nil)
	}
	return data, err
}

func readAll(ctx context.Context, location string, fetcher ObjectFetcher) ([]byte, error) {
	rc, err := OpenModel(ctx, location, fetcher)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// BaseName returns the file name of location without directory or
// extension: "models/en-ote.yaml" and "s3://m/en-ote.yaml" both give "en-ote".
func BaseName(location string) string {
	var base string
	if IsObjectURI(location) {
		base = path.Base(strings.TrimPrefix(location, ObjectScheme))
	} else {
		base = filepath.Base(location)
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
