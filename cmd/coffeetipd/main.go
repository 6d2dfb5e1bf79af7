// Copyright 2015-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command coffeetipd serves the CoffeeTip cache and sync layer over
// HTTP.  It reads from the CoffeeTip contract through a query cache
// kept current by contract events, new blocks and a background
// refresh, stores creator profiles in memory or PostgreSQL, and
// publishes the result through the restserver API.
//
//	coffeetipd --config coffeetip.yaml --http :5980
//
// With --simulate it runs against an in-process simulated contract,
// which is useful for UI development.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/diffeo/go-coffeetip/backend"
	"github.com/diffeo/go-coffeetip/config"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	profileStore := backend.Backend{Implementation: "memory"}
	app := cli.NewApp()
	app.Name = "coffeetipd"
	app.Usage = "serve CoffeeTip data with optimistic updates and real-time sync"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "YAML configuration `FILE`",
			EnvVar: "COFFEETIP_CONFIG",
		},
		cli.StringFlag{
			Name:  "http",
			Usage: "[ip]:port for HTTP REST interface",
		},
		cli.GenericFlag{
			Name:  "backend",
			Value: &profileStore,
			Usage: "impl[:address] of the profile store",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "logrus `LEVEL` (overrides the configuration)",
		},
		cli.BoolFlag{
			Name:  "log-requests",
			Usage: "log all HTTP requests",
		},
		cli.BoolFlag{
			Name:  "simulate",
			Usage: "use an in-process simulated contract instead of a node",
		},
	}
	app.Action = func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		if c.IsSet("http") {
			cfg.HTTP = c.String("http")
		}
		if c.IsSet("backend") {
			cfg.Backend = profileStore.String()
		}
		if c.IsSet("log-level") {
			cfg.LogLevel = c.String("log-level")
		}

		log := logrus.StandardLogger()
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		log.SetLevel(level)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		d, err := newDaemon(ctx, cfg, options{
			Simulate:    c.Bool("simulate"),
			LogRequests: c.Bool("log-requests"),
			Log:         log,
		})
		if err != nil {
			log.WithField("err", err).Error("could not start")
			return cli.NewExitError(err.Error(), 1)
		}
		defer d.Close()
		return d.Serve(ctx)
	}
	app.RunAndExitOnError()
}
