package ingestor

import (
	"fmt"
	"io"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/decoder"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// ingestLocal parses one delimited text file. Existence is checked exactly
// once; a missing file is never opened.
func (d *Dispatcher) ingestLocal(src config.LocalSource) (*model.Table, error) {
	exists, err := d.fs.Exists(src.Path)
	if err != nil {
		return model.Empty(), newError(KindIO, config.SourceLocal, "stat", err)
	}
	if !exists {
		d.logger.Errorf("local file %s does not exist", src.Path)
		return model.Empty(), newError(KindNotFound, config.SourceLocal, "stat",
			fmt.Errorf("%w: %s", ErrFileNotFound, src.Path))
	}

	d.logger.Infof("reading local file: %s", src.Path)

	f, err := d.fs.Open(src.Path)
	if err != nil {
		return model.Empty(), newError(KindIO, config.SourceLocal, "open", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Empty(), newError(KindIO, config.SourceLocal, "read", err)
	}

	tbl, err := decoder.ParseCSVBytes(data)
	if err != nil {
		return model.Empty(), newError(KindParse, config.SourceLocal, "parse",
			fmt.Errorf("file %s: %w", src.Path, err))
	}

	d.logger.Infof("successfully read: %d rows from %s", tbl.Len(), src.Path)
	return tbl, nil
}
