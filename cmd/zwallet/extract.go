package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

var extract = cli.Command{
	Name:      "extract",
	Usage:     "extract the network-serialized transaction from a finalized container",
	ArgsUsage: "<file>",
	Action:    extractAction,
}

func extractAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: extract <file>")
	}

	p, err := readContainer(ctx.Args().First())
	if err != nil {
		return err
	}

	tx, err := roles.Extract(p)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("TxID: %s\n", hex.EncodeToString(tx.TxID[:]))
	fmt.Println(hex.EncodeToString(tx.Raw))
	return nil
}
