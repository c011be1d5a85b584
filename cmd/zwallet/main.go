package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/zwallet-network/zwallet-daemon/pkg/pczt"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "zwallet CLI"
	app.Usage = "Offline command line tool for partially created transactions"
	app.Commands = append(
		app.Commands,
		&decode,
		&sign,
		&combine,
		&finalize,
		&extract,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[zwallet] %v\n", err)
	os.Exit(1)
}

func readContainer(path string) (*pczt.Pczt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pczt.DecodeBase64(strings.TrimSpace(string(raw)))
}

func writeContainer(path string, p *pczt.Pczt) error {
	encoded, err := pczt.EncodeBase64(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(encoded+"\n"), 0644)
}
