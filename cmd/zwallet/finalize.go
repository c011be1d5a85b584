package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

var finalize = cli.Command{
	Name:      "finalize",
	Usage:     "assemble the final scripts of a fully signed container",
	ArgsUsage: "<file>",
	Action:    finalizeAction,
}

func finalizeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: finalize <file>")
	}

	p, err := readContainer(ctx.Args().First())
	if err != nil {
		return err
	}
	if err := roles.Finalize(p); err != nil {
		return err
	}
	if err := writeContainer(ctx.Args().First(), p); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Container is finalized")
	return nil
}
