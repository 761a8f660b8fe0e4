package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/config"
)

const descriptorFile = "data.json"

// maxDescriptorBytes bounds a single data.json read.
const maxDescriptorBytes = 1 << 20

type Source interface {
	Get(ctx context.Context, id string) (*Memorial, error)
	// List returns every memorial id that has a descriptor.
	List(ctx context.Context) ([]string, error)
}

// NewSource picks the configured backend.
func NewSource(cfg config.ContentConfig, mc config.MinIOConfig, log zerolog.Logger) (Source, error) {
	switch cfg.Source {
	case config.ContentMinIO:
		return NewMinioSource(mc, log)
	default:
		return NewFileSource(cfg.Dir), nil
	}
}

// FileSource reads {dir}/{id}/data.json, the layout the static site ships.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Get(_ context.Context, id string) (*Memorial, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, id, descriptorFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open descriptor %s: %w", id, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDescriptorBytes))
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", id, err)
	}
	return Parse(id, data)
}

func (s *FileSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list descriptors: %w", err)
	}

	ids := []string{}
	for _, e := range entries {
		if !e.IsDir() || !validID(e.Name()) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), descriptorFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MinioSource reads {prefix}{id}/data.json from an S3-compatible bucket.
type MinioSource struct {
	client *minio.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

func NewMinioSource(cfg config.MinIOConfig, log zerolog.Logger) (*MinioSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioSource{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.With().Str("component", "content_minio").Logger(),
	}, nil
}

func (s *MinioSource) objectName(id string) string {
	return s.prefix + id + "/" + descriptorFile
}

func (s *MinioSource) Get(ctx context.Context, id string) (*Memorial, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxDescriptorBytes))
	if err != nil {
		return nil, s.mapError(id, err)
	}
	return Parse(id, data)
}

func (s *MinioSource) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list descriptors: %w", obj.Err)
		}
		rest := strings.TrimPrefix(obj.Key, s.prefix)
		id, file, ok := strings.Cut(rest, "/")
		if ok && file == descriptorFile && validID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MinioSource) mapError(id string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	s.log.Error().Err(err).Str("memorial_id", id).Str("bucket", s.bucket).Msg("descriptor download failed")
	return fmt.Errorf("download descriptor %s: %w", id, err)
}

func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
