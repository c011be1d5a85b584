package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var decode = cli.Command{
	Name:      "decode",
	Usage:     "print a summary of a container without modifying it",
	ArgsUsage: "<file>",
	Action:    decodeAction,
}

func decodeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: decode <file>")
	}

	p, err := readContainer(ctx.Args().First())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Stage:               %s\n", p.Stage())
	fmt.Printf("Expiry height:       %d\n", p.Global.ExpiryHeight)
	fmt.Printf("Transparent inputs:  %d\n", len(p.Transparent.Inputs))
	fmt.Printf("Transparent outputs: %d\n", len(p.Transparent.Outputs))
	fmt.Printf("Sapling spends:      %d\n", len(p.Sapling.Spends))
	fmt.Printf("Sapling outputs:     %d\n", len(p.Sapling.Outputs))
	fmt.Printf("Orchard actions:     %d\n", len(p.Orchard.Actions))

	recipients := make([]string, 0)
	for _, out := range p.Transparent.Outputs {
		if out.UserAddress != "" {
			recipients = append(recipients, out.UserAddress)
		}
	}
	for _, out := range p.Sapling.Outputs {
		if out.UserAddress != "" {
			recipients = append(recipients, out.UserAddress)
		}
	}
	for _, action := range p.Orchard.Actions {
		if action.Output.UserAddress != "" {
			recipients = append(recipients, action.Output.UserAddress)
		}
	}
	for _, addr := range recipients {
		fmt.Printf("Recipient:           %s\n", addr)
	}

	return nil
}
