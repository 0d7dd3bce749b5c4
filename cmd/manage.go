package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	"github.com/warpdl/warpalarm/pkg/alarmcli"
)

var (
	errNoID = errors.New("no alarm id given")

	reinstallFlags = []cli.Flag{
		cli.DurationFlag{
			Name:  "in, i",
			Usage: "new deadline relative to now",
		},
	}
)

// withAlarm runs op against the daemon for the id given as the first
// argument and prints done on success.
func withAlarm(ctx *cli.Context, name, done string, op func(c *alarmcli.Client, id string) error) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	id := ctx.Args().First()
	if id == "" {
		return common.PrintErrWithCmdHelp(ctx, errNoID)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, name, "new_client", err)
		return nil
	}
	defer client.Close()
	if err := op(client, id); err != nil {
		common.PrintRuntimeErr(ctx, name, name, err)
		return nil
	}
	fmt.Fprintf(ctx.App.Writer, "%s: %s\n", id, done)
	return nil
}

func cancelAlarm(ctx *cli.Context) error {
	return withAlarm(ctx, "cancel", "removed", func(c *alarmcli.Client, id string) error {
		rctx, cancel := rpcContext()
		defer cancel()
		return c.Cancel(rctx, id)
	})
}

func uninstall(ctx *cli.Context) error {
	return withAlarm(ctx, "uninstall", "uninstalled", func(c *alarmcli.Client, id string) error {
		rctx, cancel := rpcContext()
		defer cancel()
		return c.Uninstall(rctx, id)
	})
}

func install(ctx *cli.Context) error {
	return withAlarm(ctx, "install", "installed", func(c *alarmcli.Client, id string) error {
		rctx, cancel := rpcContext()
		defer cancel()
		return c.Install(rctx, id)
	})
}

func reinstall(ctx *cli.Context) error {
	in := ctx.Duration("in")
	if in <= 0 && ctx.Args().First() != "help" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("--in must be a positive duration"))
	}
	return withAlarm(ctx, "reinstall", "reinstalled, fires at "+time.Now().Add(in).Format(time.RFC3339),
		func(c *alarmcli.Client, id string) error {
			rctx, cancel := rpcContext()
			defer cancel()
			return c.Reinstall(rctx, id, in)
		})
}
