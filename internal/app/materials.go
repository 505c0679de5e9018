package app

import (
	"context"
	"fmt"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/gcp"
	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

var newMaterialBucket = gcp.NewMaterialBucket

type MaterialsBootstrapErrorCode string

const (
	MaterialsBootstrapErrorInvalidStorageConfig MaterialsBootstrapErrorCode = "invalid_storage_config"
	MaterialsBootstrapErrorConnectFailed        MaterialsBootstrapErrorCode = "connect_failed"
)

type MaterialsBootstrapError struct {
	Code   MaterialsBootstrapErrorCode
	Bucket string
	Mode   string
	Cause  error
}

func (e *MaterialsBootstrapError) Error() string {
	if e == nil {
		return "materials bucket bootstrap failed"
	}
	return fmt.Sprintf("materials bucket bootstrap failed (code=%s bucket=%q mode=%q): %v", e.Code, e.Bucket, e.Mode, e.Cause)
}

func (e *MaterialsBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveMaterialBucket opens the configured GCS materials bucket. It returns
// (nil, nil) when no bucket is configured.
func resolveMaterialBucket(ctx context.Context, log *logger.Logger, cfg Config) (*gcp.MaterialBucket, error) {
	if cfg.MaterialsBucket == "" {
		return nil, nil
	}
	storageCfg, err := gcp.ResolveObjectStorageConfigFromEnv()
	if err != nil {
		bootErr := &MaterialsBootstrapError{
			Code:   MaterialsBootstrapErrorInvalidStorageConfig,
			Bucket: cfg.MaterialsBucket,
			Mode:   string(storageCfg.Mode),
			Cause:  err,
		}
		log.Error("Materials bucket selection failed", "bucket", cfg.MaterialsBucket, "error_code", bootErr.Code, "error", err)
		return nil, bootErr
	}

	log.Info("Selecting materials bucket",
		"bucket", cfg.MaterialsBucket,
		"prefix", cfg.MaterialsPrefix,
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
	)
	bucket, err := newMaterialBucket(ctx, log, storageCfg, cfg.MaterialsBucket, cfg.MaterialsPrefix)
	if err != nil {
		bootErr := &MaterialsBootstrapError{
			Code:   MaterialsBootstrapErrorConnectFailed,
			Bucket: cfg.MaterialsBucket,
			Mode:   string(storageCfg.Mode),
			Cause:  err,
		}
		log.Error("Materials bucket bootstrap failed", "bucket", cfg.MaterialsBucket, "error_code", bootErr.Code, "error", err)
		return nil, bootErr
	}
	return bucket, nil
}
