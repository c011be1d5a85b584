package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/vulpemventures/go-bip39"

	"github.com/zwallet-network/zwallet-daemon/pkg/keys"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
	"github.com/zwallet-network/zwallet-daemon/pkg/pczt/roles"
)

var sign = cli.Command{
	Name:      "sign",
	Usage:     "contribute signatures to a container using its embedded hints",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "mnemonic",
			Usage:    "the mnemonic of the signing seed",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "write the signed container to this file instead of overwriting",
		},
	},
	Action: signAction,
}

func signAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: sign --mnemonic \"...\" <file>")
	}
	mnemonic := ctx.String("mnemonic")
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("invalid mnemonic")
	}

	p, err := readContainer(ctx.Args().First())
	if err != nil {
		return err
	}

	hints, err := pczt.ReadGlobalHints(p)
	if err != nil {
		return fmt.Errorf("container carries no usable signing hints: %v", err)
	}

	seed := bip39.NewSeed(mnemonic, "")
	fp, err := keys.FingerprintFromSeed(seed)
	if err != nil {
		return err
	}
	if fp != hints.SeedFingerprint {
		return fmt.Errorf(
			"container was funded for seed %s, not this one", hints.SeedFingerprint,
		)
	}

	accountKey, err := keys.NewAccountKey(seed, hints.AccountIndex)
	if err != nil {
		return err
	}
	defer accountKey.Zeroize()

	signed, skipped, err := signAll(p, accountKey)
	if err != nil {
		return err
	}

	outPath := ctx.String("out")
	if outPath == "" {
		outPath = ctx.Args().First()
	}
	if err := writeContainer(outPath, p); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Contributed %d signatures (%d items skipped)\n", signed, skipped)
	return nil
}

func signAll(p *pczt.Pczt, accountKey *keys.AccountKey) (int, int, error) {
	signer, err := roles.NewSigner(p)
	if err != nil {
		return 0, 0, err
	}

	signed, skipped := 0, 0
	for i := range p.Transparent.Inputs {
		in := &p.Transparent.Inputs[i]
		hints, usable := pczt.ReadInputHints(in)
		if !usable {
			skipped++
			continue
		}
		sk, err := accountKey.TransparentKey(hints.Scope, hints.AddressIndex)
		if err != nil {
			skipped++
			continue
		}
		before := len(in.PartialSignatures)
		err = signer.SignTransparent(i, sk)
		sk.Zero()
		if err != nil {
			if errors.Is(err, roles.ErrKeyMismatch) {
				skipped++
				continue
			}
			return 0, 0, err
		}
		if len(in.PartialSignatures) > before {
			signed++
		}
	}

	for i := range p.Sapling.Spends {
		if p.Sapling.Spends[i].SpendAuthSig != nil {
			continue
		}
		if err := signer.SignSapling(i, accountKey.SaplingSpendAuthKey()); err != nil {
			if errors.Is(err, roles.ErrWrongSpendAuthKey) ||
				errors.Is(err, roles.ErrMissingRandomizer) {
				skipped++
				continue
			}
			return 0, 0, err
		}
		signed++
	}

	for i := range p.Orchard.Actions {
		spend := &p.Orchard.Actions[i].Spend
		if spend.SpendAuthSig != nil || spend.Value == nil || *spend.Value == 0 {
			continue
		}
		if err := signer.SignOrchard(i, accountKey.OrchardSpendAuthKey()); err != nil {
			if errors.Is(err, roles.ErrWrongSpendAuthKey) ||
				errors.Is(err, roles.ErrMissingRandomizer) {
				skipped++
				continue
			}
			return 0, 0, err
		}
		signed++
	}

	return signed, skipped, nil
}
