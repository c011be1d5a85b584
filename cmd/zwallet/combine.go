package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

var combine = cli.Command{
	Name:      "combine",
	Usage:     "merge the contributions of several containers describing the same transaction",
	ArgsUsage: "<file> <file> [<file>...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Usage:    "write the merged container to this file",
			Required: true,
		},
	},
	Action: combineAction,
}

func combineAction(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("usage: combine --out <file> <file> <file> [<file>...]")
	}

	containers := make([]*pczt.Pczt, 0, ctx.NArg())
	for _, path := range ctx.Args().Slice() {
		p, err := readContainer(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		containers = append(containers, p)
	}

	merged, err := roles.Combine(containers...)
	if err != nil {
		return err
	}
	if err := writeContainer(ctx.String("out"), merged); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Merged %d containers, stage is now %s\n", ctx.NArg(), merged.Stage())
	return nil
}
