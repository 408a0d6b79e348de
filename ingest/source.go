// Package ingest fetches the raw dataset tables from where they live: a
// directory of CSV files, a remote archive, or a SQL database.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/db"
	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// Source fetches one complete set of raw tables. It satisfies store.Source.
type Source interface {
	Fetch(ctx context.Context) (inventory.RawTables, error)
	Name() string
	Close() error
}

// NewSource builds the source selected by cfg.Source
func NewSource(cfg am.DataConfig, log *zap.SugaredLogger) (Source, error) {
	if log == nil {
		log = logger.ComponentLogger("ingest")
	}

	switch cfg.Source {
	case am.SourceDir, "":
		if cfg.Dir == "" {
			return nil, errors.WithHint(
				errors.Wrap(errors.ErrNotConfigured, "data.dir is empty"),
				"set data.dir in smrt.toml or SMRT_DATA_DIR")
		}
		return NewDirSource(cfg.Dir, log), nil
	case am.SourceRemote:
		if cfg.RemoteURL == "" {
			return nil, errors.WithHint(
				errors.Wrap(errors.ErrNotConfigured, "data.remote_url is empty"),
				"set data.remote_url to a go-getter URL, e.g. s3::https://s3.amazonaws.com/bucket/data")
		}
		return NewRemoteSource(cfg.RemoteURL, log), nil
	case am.SourceSQL:
		conn, err := db.Open(cfg.SQLDriver, cfg.SQLDSN, log)
		if err != nil {
			return nil, errors.Wrap(err, "open sql source")
		}
		return NewSQLSource(conn, cfg.SQLDriver, log), nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unknown data source %q (valid: dir, remote, sql)", cfg.Source)
	}
}
