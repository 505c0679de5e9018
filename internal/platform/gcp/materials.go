package gcp

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

// MaterialBucket lists course material objects under a bucket prefix.
type MaterialBucket struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
}

func NewMaterialBucket(ctx context.Context, log *logger.Logger, storageCfg ObjectStorageConfig, bucket, prefix string) (*MaterialBucket, error) {
	if log == nil {
		log = logger.Nop()
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing materials bucket name")
	}
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	client, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "MaterialBucket", "bucket", bucket, "prefix", prefix)
	serviceLog.Info("object storage initialized", "mode", storageCfg.Mode, "emulator_host", storageCfg.EmulatorHost)
	return &MaterialBucket{log: serviceLog, client: client, bucket: bucket, prefix: prefix}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	if storageCfg.IsEmulatorMode() {
		endpoint := strings.TrimRight(storageCfg.EmulatorHost, "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx,
			option.WithEndpoint(endpoint+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	}
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	return storage.NewClient(ctx, opts...)
}

func (b *MaterialBucket) Name() string { return "gs://" + path.Join(b.bucket, b.prefix) }

// List returns object base names under the prefix, sorted. Directory
// placeholders are skipped.
func (b *MaterialBucket) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.prefix})
	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", b.bucket, b.prefix, err)
		}
		if attrs == nil || attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		names = append(names, path.Base(attrs.Name))
	}
	sort.Strings(names)
	b.log.Debug("listed materials", "count", len(names))
	return names, nil
}

func (b *MaterialBucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
