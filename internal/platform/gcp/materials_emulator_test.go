package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"

	"github.com/yungbote/neurobridge-curriculum/internal/platform/logger"
)

func TestMaterialBucketListAgainstEmulator(t *testing.T) {
	host := strings.TrimRight(strings.TrimSpace(os.Getenv("TEST_GCS_EMULATOR_HOST")), "/")
	if host == "" {
		t.Skip("TEST_GCS_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	cfg := ObjectStorageConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: host}

	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		t.Fatalf("newStorageClientForMode: %v", err)
	}
	defer client.Close()

	bucket := fmt.Sprintf("curriculum-it-%d", time.Now().UnixNano())
	if err := client.Bucket(bucket).Create(ctx, "test-project", &storage.BucketAttrs{}); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	for _, key := range []string{"course/R2_notes.pdf", "course/R1_slides.pptx", "other/R9.txt"} {
		w := client.Bucket(bucket).Object(key).NewWriter(ctx)
		if _, err := w.Write([]byte("x")); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close %s: %v", key, err)
		}
	}

	mb, err := NewMaterialBucket(ctx, logger.Nop(), cfg, bucket, "course/")
	if err != nil {
		t.Fatalf("NewMaterialBucket: %v", err)
	}
	defer mb.Close()

	names, err := mb.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"R1_slides.pptx", "R2_notes.pdf"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("List: want=%v got=%v", want, names)
	}
}
