package ingestor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/decoder"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// ingestAPI performs a single GET and decodes the JSON body into a table.
// Every failure is logged here; compat mode contains all of them.
func (d *Dispatcher) ingestAPI(ctx context.Context, src config.APISource) (*model.Table, error) {
	d.logger.Infof("fetching data from API: %s", src.URL)

	ctx, cancel := context.WithTimeout(ctx, src.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		d.logger.Errorf("API request exception: %v", err)
		return model.Empty(), newError(KindConfig, config.SourceAPI, "request", err)
	}
	if src.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+src.AuthToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Errorf("API request exception: %v", err)
		return model.Empty(), newError(KindTransport, config.SourceAPI, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warningf("API request failed with status: %d", resp.StatusCode)
		return model.Empty(), &Error{
			Kind:       KindStatus,
			Source:     config.SourceAPI,
			Op:         "request",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.logger.Errorf("API request exception: %v", err)
		return model.Empty(), newError(KindTransport, config.SourceAPI, "read", err)
	}

	tbl, err := decoder.DecodeRecords(bytes.NewReader(body))
	if err != nil {
		d.logger.Errorf("API request exception: %v", err)
		return model.Empty(), newError(KindParse, config.SourceAPI, "parse", err)
	}

	d.logger.Infof("successfully ingested %d rows from API", tbl.Len())
	return tbl, nil
}
