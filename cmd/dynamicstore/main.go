// Command dynamicstore is a small admin tool for inspecting and
// initializing dynamicstore files, built the way etcdctl wires up
// urfave/cli commands against a backend it does not otherwise touch
// directly.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/dynamicstore/dynamicstore"
)

func main() {
	app := cli.NewApp()
	app.Name = "dynamicstore"
	app.Usage = "inspect and initialize dynamicstore files"
	app.Commands = []cli.Command{
		formatCommand(),
		checkCommand(),
		infoCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dynamicstore:", err)
		os.Exit(1)
	}
}

func formatCommand() cli.Command {
	return cli.Command{
		Name:      "format",
		Usage:     "reset a file to a single, empty cluster",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("dynamicstore format: missing <path>", 1)
			}

			e, err := dynamicstore.Open(path)
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer e.Close()

			if err := e.Format(); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			fmt.Println("formatted", path)
			return nil
		},
	}
}

func checkCommand() cli.Command {
	return cli.Command{
		Name:      "check",
		Usage:     "run the consistency check against an existing file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("dynamicstore check: missing <path>", 1)
			}

			e, err := dynamicstore.Open(path, dynamicstore.WithoutFormat())
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer e.Close()

			if !e.LoadAndCheck() {
				return cli.NewExitError("consistency check failed, see log output above", 1)
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func infoCommand() cli.Command {
	return cli.Command{
		Name:      "info",
		Usage:     "print allocation statistics for a file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.NewExitError("dynamicstore info: missing <path>", 1)
			}

			e, err := dynamicstore.Open(path, dynamicstore.WithoutFormat())
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer e.Close()

			stats := e.Stats()
			fmt.Printf("store id:            %x\n", stats.StoreID)
			fmt.Printf("file size:           %d bytes\n", stats.FileSize)
			fmt.Printf("user metadata size:  %d bytes\n", stats.UserMetadataSize)
			fmt.Printf("index table entries: %d\n", stats.IndexTableEntries)
			fmt.Printf("live arrays:         %d\n", stats.LiveArrays)
			return nil
		},
	}
}
