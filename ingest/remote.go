package ingest

import (
	"context"
	"os"

	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
	"github.com/teranos/smrt/logger"
)

// RemoteSource downloads a directory of table files with go-getter (http,
// s3, gcs, git, file ...) into a temporary directory and parses it like a
// DirSource. The download is removed after every fetch.
type RemoteSource struct {
	url    string
	logger *zap.SugaredLogger
}

// NewRemoteSource creates a source for a go-getter URL
func NewRemoteSource(url string, log *zap.SugaredLogger) *RemoteSource {
	if log == nil {
		log = logger.ComponentLogger("ingest")
	}
	return &RemoteSource{url: url, logger: log}
}

// Name implements Source
func (s *RemoteSource) Name() string { return "remote:" + s.url }

// Close implements Source
func (s *RemoteSource) Close() error { return nil }

// Fetch implements Source
func (s *RemoteSource) Fetch(ctx context.Context) (inventory.RawTables, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "get working directory")
	}
	detected, err := getter.Detect(s.url, pwd, getter.Detectors)
	if err != nil {
		return nil, errors.Wrapf(err, "detect source %s", s.url)
	}

	tempDir, err := os.MkdirTemp("", "smrt-data-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp directory")
	}
	defer func() {
		s.logger.Debugw("Cleaning up downloaded tables", "path", tempDir)
		os.RemoveAll(tempDir)
	}()

	s.logger.Infow("Fetching remote tables",
		logger.FieldSource, s.url,
		"detected", detected)

	client := &getter.Client{
		Ctx:  ctx,
		Src:  detected,
		Dst:  tempDir,
		Mode: getter.ClientModeDir,
		// default getters include http, s3, gcs, git and file
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrTimeout, err.Error())
		}
		return nil, errors.Wrap(errors.Mark(err, errors.ErrServiceUnavailable), "download tables")
	}

	return NewDirSource(tempDir, s.logger).Fetch(ctx)
}
