package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func app() *cli.App {
	return &cli.App{
		Name:  "yrdbctl",
		Usage: "offline tools of the yeast regulatory database",
		Commands: []*cli.Command{
			validateCommand(),
			tokenCommand(),
		},
	}
}

func main() {
	if err := app().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}
