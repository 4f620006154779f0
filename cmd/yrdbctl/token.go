package main

import (
	"fmt"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/api/auth"
	"github.com/opst/yeastregulatorydb/pkg/configs"
	"github.com/urfave/cli/v2"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token of the api",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name: "key", Usage: "HMAC key of the api server",
				EnvVars: []string{configs.EnvAuthHMACKey}, Required: true,
			},
			&cli.StringFlag{Name: "user", Usage: "user name put in the token", Required: true},
			&cli.DurationFlag{Name: "ttl", Usage: "lifetime of the token", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			token, err := auth.Issue([]byte(c.String("key")), c.String("user"), time.Now(), c.Duration("ttl"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, token)
			return err
		},
	}
}
