package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "failed to load .env:", err)
		os.Exit(1)
	}

	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "petitions",
		Usage: "Discover, rank and inspect on-chain petitions",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print petitions ranked by mode as JSON",
				Flags:  withFlags(chainFlags(), listFlags()),
				Action: withApp(listPetitions),
			},
			{
				Name:      "show",
				Usage:     "Print one petition and its signers as JSON",
				ArgsUsage: "<petition-id>",
				Flags:     chainFlags(),
				Action:    withApp(showPetition),
			},
			{
				Name:      "signers",
				Usage:     "Resolve the signers of one or more petitions",
				ArgsUsage: "<petition-id>...",
				Flags:     withFlags(chainFlags(), signersFlags()),
				Action:    withApp(listSigners),
			},
			{
				Name:   "watch",
				Usage:  "Print the ranked list every refresh interval",
				Flags:  withFlags(chainFlags(), listFlags(), watchFlags()),
				Action: withApp(watchPetitions),
			},
			{
				Name:   "serve",
				Usage:  "Serve the discovery HTTP API and metrics",
				Flags:  withFlags(chainFlags(), serveFlags()),
				Action: serve,
			},
		},
	}
}
