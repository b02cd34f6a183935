package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"gcalauto/internal/config"
	"gcalauto/internal/papers"
)

const defaultPapersFile = "cvpr2024_raw.html"

func papersCommand() *cli.Command {
	return &cli.Command{
		Name:  "papers",
		Usage: "Download and parse a conference paper listing.",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Save the raw listing page.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Value: papers.DefaultURL},
					&cli.StringFlag{Name: "out", Value: defaultPapersFile},
				},
				Action: func(c *cli.Context) error {
					cfg := c.App.Metadata[configKey].(config.Config)
					client := &http.Client{Timeout: cfg.RequestTimeout}
					n, err := papers.Fetch(c.Context, client, c.String("url"), c.String("out"))
					if err != nil {
						return err
					}
					fmt.Printf("HTML content downloaded and saved as '%s' (%d bytes).\n", c.String("out"), n)
					return nil
				},
			},
			{
				Name:  "parse",
				Usage: "Print the title, link and authors of every paper in a saved listing.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Value: defaultPapersFile},
				},
				Action: func(c *cli.Context) error {
					f, err := os.Open(c.String("in"))
					if err != nil {
						return fmt.Errorf("failed to open listing: %w", err)
					}
					defer f.Close()

					list, err := papers.Parse(f)
					if err != nil {
						return err
					}
					return papers.Format(os.Stdout, list)
				},
			},
		},
	}
}
