package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/userconsole/internal/buildinfo"
	"github.com/dmitrijs2005/userconsole/internal/client/cli"
	"github.com/dmitrijs2005/userconsole/internal/client/client"
	"github.com/dmitrijs2005/userconsole/internal/client/config"
	"github.com/dmitrijs2005/userconsole/internal/client/export"
	"github.com/dmitrijs2005/userconsole/internal/client/repositories/session"
	"github.com/dmitrijs2005/userconsole/internal/client/services"
	"github.com/dmitrijs2005/userconsole/internal/logging"

	_ "modernc.org/sqlite"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	sink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}

	sess := client.NewSession(session.NewSQLiteRepository(db))

	var app *cli.App
	httpc := client.NewHTTPClient(
		client.HTTPClientConfig{BaseURL: cfg.APIBaseURL, Timeout: cfg.RequestTimeout},
		sess,
		client.WithLogger(logger),
		client.OnSessionExpired(func(ctx context.Context) { app.SessionExpired(ctx) }),
	)

	auth := services.NewAuthService(httpc, sess, logger)
	users := services.NewUserService(httpc, sink, logger)

	app = cli.NewApp(auth, users, os.Stdin, os.Stdout, cli.Options{PageSize: cfg.PageSize, Logger: logger})
	app.Run(ctx)
	return nil
}

func newSink(ctx context.Context, cfg *config.Config) (export.Sink, error) {
	if cfg.ExportBucket == "" {
		return export.NewFileSink(cfg.ExportDir), nil
	}
	return export.NewS3Sink(ctx, export.S3Config{
		Bucket:    cfg.ExportBucket,
		Prefix:    cfg.ExportPrefix,
		Region:    cfg.ExportRegion,
		Endpoint:  cfg.ExportEndpoint,
		AccessKey: cfg.ExportAccessKey,
		SecretKey: cfg.ExportSecretKey,
	})
}
