package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"

	kpg "github.com/opst/yeastregulatorydb/pkg/db/postgres"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logrus.New()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app := &cli.App{
		Name:  "schema_upgrader",
		Usage: "upgrade the database schema to the latest version in the schema repository",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "The host of the database.", EnvVars: []string{"DB_HOST"}, Value: "localhost"},
			&cli.IntFlag{Name: "port", Usage: "The port of the database.", EnvVars: []string{"DB_PORT"}, Value: 5432},
			&cli.StringFlag{Name: "user", Usage: "The user of the database.", EnvVars: []string{"DB_USER"}},
			&cli.StringFlag{Name: "pass", Usage: "The password of the database.", EnvVars: []string{"DB_PASSWORD"}},
			&cli.StringFlag{Name: "database", Usage: "The name of the database.", EnvVars: []string{"DB_NAME"}},
			&cli.StringFlag{
				Name: "schema", Usage: "The path to the schema repository directory.",
				EnvVars: []string{"YRDB_SCHEMA"}, Value: "./schema/postgres",
			},
		},
		Action: func(c *cli.Context) error {
			uri := url.URL{
				Scheme: "postgres",
				User:   url.UserPassword(c.String("user"), c.String("pass")),
				Host:   fmt.Sprintf("%s:%d", c.String("host"), c.Int("port")),
				Path:   "/" + c.String("database"),
			}
			db, err := kpg.New(c.Context, uri.String(), kpg.WithSchemaRepository(c.String("schema")))
			if err != nil {
				return err
			}
			defer db.Close()

			before, err := db.Schema().Version(c.Context)
			if err != nil {
				return err
			}
			if err := db.Schema().Upgrade(c.Context); err != nil {
				return err
			}
			after, err := db.Schema().Version(c.Context)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"from": before, "to": after}).Info("schema is upgraded")
			return nil
		},
	}
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("schema is not upgraded")
	}
}
