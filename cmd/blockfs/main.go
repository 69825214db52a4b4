// Command blockfs runs a block filesystem command script against a disk
// image, or checks a standalone image for consistency.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dargueta/blockfs/command"
	"github.com/dargueta/blockfs/image"
	"github.com/dargueta/blockfs/session"
	"github.com/dargueta/blockfs/verify"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "blockfs",
		Usage: "Run a block filesystem command script, or check an image",
		// Bare invocation, `blockfs SCRIPT`, matches the original program's
		// single positional argument.
		ArgsUsage: "SCRIPT",
		Action:    runScript,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run a command script against a mounted image",
				ArgsUsage: "SCRIPT",
				Action:    runScript,
			},
			{
				Name:      "fsck",
				Usage:     "Check a disk image for consistency",
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "verbose", Usage: "report every failing check, not just the first"},
				},
				Action: fsckImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func runScript(c *cli.Context) error {
	if c.Args().Len() != 1 {
		fmt.Fprintln(os.Stderr, "Error: Incorrect number of arguments")
		os.Exit(1)
	}

	path := c.Args().First()
	raw, err := os.ReadFile(path)
	if err != nil {
		// The original program silently does nothing if the script can't
		// be opened; it only reports errors for the commands within it.
		return nil
	}

	sess := session.New(os.Stdout, os.Stderr)
	front := command.New(sess, path)
	front.Run(strings.Split(string(raw), "\n"))
	return nil
}

func fsckImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("fsck requires an image path", 1)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: Cannot find disk %s", path), 1)
	}

	img := image.Decode(raw)
	result := verify.Run(img)
	if result.Code == verify.OK {
		fmt.Printf("%s: consistent\n", path)
		return nil
	}

	fmt.Printf("%s: inconsistent (first failing check: %d)\n", path, result.Code)
	if c.Bool("verbose") && result.Details != nil {
		for _, e := range result.Details.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return cli.Exit("", 1)
}
