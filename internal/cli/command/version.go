package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/cfgclient-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			f, _, err := formatter(c)
			if err != nil {
				return err
			}
			return f.Format(writer(c), buildinfo.Get())
		},
	}
}
