package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/studiowebux/dlts/internal/config"
	"github.com/studiowebux/dlts/internal/execution"
	"github.com/studiowebux/dlts/internal/objectstore"
	"github.com/studiowebux/dlts/internal/store"
	"github.com/studiowebux/dlts/internal/submission"
	"github.com/studiowebux/dlts/internal/telemetry"
)

// App holds the collaborators shared by every command
type App struct {
	Settings    *config.Settings
	Log         *logrus.Logger
	Metrics     *telemetry.Metrics
	Exec        execution.Service
	Objects     objectstore.Store
	Submissions *submission.Service

	// Local is set when the local backend is in use
	Local *store.Local

	Out io.Writer
	In  io.Reader
}

// NewApp builds the backend, object store and submission service from settings
func NewApp(ctx context.Context, s *config.Settings, in io.Reader, out, errOut io.Writer) (*App, error) {
	app := &App{
		Settings: s,
		Log:      s.NewLogger(errOut),
		Metrics:  telemetry.New(),
		Out:      out,
		In:       in,
	}

	switch s.Backend {
	case config.BackendRemote:
		opts := execution.Options{
			BaseURL:    s.APIURL,
			Timeout:    s.HTTPTimeout,
			MaxRetries: s.RetryMax,
			Logger:     app.Log,
		}
		if s.TLS.Enabled() {
			opts.TLS = &execution.TLSConfig{
				CertFile:           s.TLS.CertFile,
				KeyFile:            s.TLS.KeyFile,
				CAFile:             s.TLS.CAFile,
				InsecureSkipVerify: s.TLS.InsecureSkipVerify,
			}
		}
		client, err := execution.NewClient(opts)
		if err != nil {
			return nil, err
		}
		app.Exec = client
	default:
		dbPath, err := config.ResolvePath(s.DatabasePath, config.DatabasePath)
		if err != nil {
			return nil, err
		}
		local, err := store.NewLocal(dbPath, store.WithLogger(app.Log))
		if err != nil {
			return nil, err
		}
		app.Local = local
		app.Exec = local
	}

	objects, err := newObjectStore(ctx, s)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Objects = objects

	app.Submissions = submission.New(app.Exec, objects,
		submission.WithPolicy(submission.Policy(s.UploadPolicy)),
		submission.WithDownloadExpiry(s.DownloadExpiry),
		submission.WithMetrics(app.Metrics),
		submission.WithLogger(app.Log),
	)
	return app, nil
}

func newObjectStore(ctx context.Context, s *config.Settings) (objectstore.Store, error) {
	if s.ObjectStore == config.ObjectStoreS3 {
		return objectstore.NewS3(ctx, objectstore.S3Options{
			Bucket:   s.Bucket,
			Region:   s.Region,
			Endpoint: s.S3Endpoint,
		})
	}

	root, err := config.ResolvePath(s.ObjectsDir, config.ObjectsDir)
	if err != nil {
		return nil, err
	}
	return objectstore.NewDir(root)
}

// RequireLocal returns the local store or an error naming the command
func (a *App) RequireLocal(command string) (*store.Local, error) {
	if a.Local == nil {
		return nil, fmt.Errorf("%s needs DLTS_BACKEND=%s", command, config.BackendLocal)
	}
	return a.Local, nil
}

// Close releases the local database and writes the metrics file
func (a *App) Close() error {
	var firstErr error
	if a.Local != nil {
		if err := a.Local.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close database: %w", err)
		}
	}
	if a.Settings != nil && a.Settings.MetricsFile != "" {
		if err := a.Metrics.WriteFile(a.Settings.MetricsFile); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
