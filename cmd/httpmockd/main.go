// Command httpmockd serves response plans from fixture files over HTTP.
package main

import (
	"context"
	"errors"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"os"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/circleci/httpmock/fixture"
	"github.com/circleci/httpmock/mocker"
	"github.com/circleci/httpmock/mockserver"
	"github.com/circleci/httpmock/o11y"
	"github.com/circleci/httpmock/o11y/jsonlog"
)

type cli struct {
	Addr       string   `env:"HTTPMOCKD_ADDR" default:":8080" help:"The address to listen on"`
	BaseURL    string   `env:"HTTPMOCKD_BASE_URL" help:"Scheme and host that requests are matched as, the request Host header if unset"`
	LogCompact bool     `env:"HTTPMOCKD_LOG_COMPACT" help:"Write one JSON log event per line"`
	StatsdAddr string   `env:"HTTPMOCKD_STATSD_ADDR" help:"Send resolution metrics to this statsd agent"`
	Fixtures   []string `arg:"" optional:"" help:"YAML fixture files to serve"`
}

var errTerminated = errors.New("terminated")

func main() {
	c := cli{}
	kong.Parse(&c,
		kong.Name("httpmockd"),
		kong.Description("Serve canned HTTP responses from fixture files."),
	)

	err := run(context.Background(), c)
	if err != nil && !errors.Is(err, errTerminated) {
		log.Fatal("Unexpected Error: ", err)
	}
	log.Println("exited 0")
}

func run(ctx context.Context, c cli) (err error) {
	ctx, cleanup, err := loadO11y(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	ctx, runSpan := o11y.StartSpan(ctx, "main: run")
	defer o11y.End(runSpan, &err)

	e, err := loadEngine(ctx, c.Fixtures)
	if err != nil {
		return err
	}

	srv, err := mockserver.New(ctx, mockserver.Config{
		Name:    "httpmockd",
		Addr:    c.Addr,
		BaseURL: c.BaseURL,
		Engine:  e,
	})
	if err != nil {
		return err
	}
	o11y.Log(ctx, "serving", o11y.Field("address", srv.Addr()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx)
	})
	g.Go(func() error {
		return handleTermination(ctx)
	})
	return g.Wait()
}

func loadO11y(ctx context.Context, c cli) (context.Context, func(context.Context), error) {
	cfg := jsonlog.Config{Compact: c.LogCompact}
	closeMetrics := func() {}
	if c.StatsdAddr != "" {
		sc, err := statsd.New(c.StatsdAddr, statsd.WithNamespace("httpmockd."))
		if err != nil {
			return nil, nil, err
		}
		cfg.Metrics = sc
		closeMetrics = func() {
			_ = sc.Close()
		}
	}

	p := jsonlog.New(cfg)
	return o11y.WithProvider(ctx, p), func(ctx context.Context) {
		p.Close(ctx)
		closeMetrics()
	}, nil
}

func loadEngine(ctx context.Context, files []string) (e *mocker.Engine, err error) {
	ctx, span := o11y.StartSpan(ctx, "main: load-fixtures")
	defer o11y.End(span, &err)

	e = mocker.New(ctx, mocker.Config{})
	total := 0
	for _, f := range files {
		plans, err := fixture.LoadFile(f)
		if err != nil {
			return nil, err
		}
		if err := fixture.Apply(e, plans); err != nil {
			return nil, err
		}
		total += len(plans)
	}
	span.AddField("files", len(files))
	span.AddField("plans", total)
	return e, nil
}

func handleTermination(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
		return errTerminated
	case <-ctx.Done():
		return nil
	}
}
