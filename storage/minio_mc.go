package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// PartitionStats summarises one stored partition.
type PartitionStats struct {
	Name         string
	Objects      int64
	Size         int64
	LastModified time.Time
}

// Stats walks every object under the cache prefix once and groups them by
// partition, in listing order.
func (c *MinioCache) Stats(ctx context.Context) ([]PartitionStats, error) {
	var out []PartitionStats
	index := make(map[string]int)

	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: c.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		name, _, ok := strings.Cut(strings.TrimPrefix(obj.Key, c.prefix), "/")
		if !ok {
			continue
		}
		i, seen := index[name]
		if !seen {
			i = len(out)
			index[name] = i
			out = append(out, PartitionStats{Name: name})
		}
		s := &out[i]
		s.Objects++
		s.Size += obj.Size
		if obj.LastModified.After(s.LastModified) {
			s.LastModified = obj.LastModified
		}
	}
	return out, nil
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
