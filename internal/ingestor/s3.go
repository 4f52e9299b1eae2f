package ingestor

import (
	"context"
	"fmt"
	"strings"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/decoder"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// ingestS3 lists src.Bucket/src.Prefix once and concatenates every object
// whose key ends in src.Suffix, in listing order.
func (d *Dispatcher) ingestS3(ctx context.Context, src config.S3Source) (*model.Table, error) {
	if d.store == nil {
		d.logger.Errorf("object storage source requested but no object store is configured")
		return model.Empty(), newError(KindConfig, config.SourceS3, "list", ErrNoObjectStore)
	}

	d.logger.Infof("ingesting objects from bucket: %s and prefix: %s", src.Bucket, src.Prefix)

	objects, err := d.store.List(ctx, src.Bucket, src.Prefix)
	if err != nil {
		return model.Empty(), newError(KindTransport, config.SourceS3, "list", err)
	}

	if len(objects) == 0 {
		d.logger.Errorf("no files found in bucket: %s with prefix: %s", src.Bucket, src.Prefix)
		return model.Empty(), newError(KindNotFound, config.SourceS3, "list",
			fmt.Errorf("%w: bucket=%s prefix=%s", ErrNoObjects, src.Bucket, src.Prefix))
	}

	var fragments []*model.Table
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, src.Suffix) {
			continue
		}

		d.logger.Infof("ingesting file %s from object storage", obj.Key)

		data, err := d.store.Get(ctx, src.Bucket, obj.Key)
		if err != nil {
			return model.Empty(), newError(KindTransport, config.SourceS3, "get", err)
		}

		fragment, err := decoder.ParseCSVText(data)
		if err != nil {
			return model.Empty(), newError(KindParse, config.SourceS3, "parse",
				fmt.Errorf("object %s: %w", obj.Key, err))
		}
		fragments = append(fragments, fragment)
	}

	if len(fragments) == 0 {
		d.logger.Warningf("no %s files ingested from object storage", strings.TrimPrefix(src.Suffix, "."))
		return model.Empty(), nil
	}

	combined := model.Concat(fragments...)
	d.logger.Infof("successfully ingested: %d files, total rows: %d", len(fragments), combined.Len())
	return combined, nil
}
