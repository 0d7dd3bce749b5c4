package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
)

var lsFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "status, s",
		Usage: `only show alarms with this status: "next", "scheduled" or "done"`,
	},
	cli.StringFlag{
		Name:  "id",
		Usage: "only show this alarm, installed or not",
	},
}

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "new_client", err)
		return nil
	}
	defer client.Close()

	rctx, cancel := rpcContext()
	defer cancel()
	entries, err := client.List(rctx, &sharedcommon.ListParams{
		ID:     ctx.String("id"),
		Status: ctx.String("status"),
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "get_list", err)
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(ctx.App.Writer, "warpalarm: no alarms found")
		return nil
	}
	fmt.Fprint(ctx.App.Writer, formatList(entries, time.Now()))
	return nil
}

const labelWidth = 20

func formatList(entries []*sharedcommon.AlarmEntry, now time.Time) string {
	var b strings.Builder
	b.WriteString("Here are your alarms:\n\n")
	b.WriteString("|Num|" + common.Beaut("Label", labelWidth) + "|        Fires at        |   In   |  Status   | ID\n")
	b.WriteString("|---|" + strings.Repeat("-", labelWidth) + "|------------------------|--------|-----------|----\n")
	for i, e := range entries {
		label := e.Callback
		if len(label) > labelWidth {
			label = label[:labelWidth-3] + "..."
		}
		in := "-"
		if e.Status != "done" {
			in = e.Time().Sub(now).Truncate(time.Second).String()
		}
		fmt.Fprintf(&b, "|%3d|%s|%s|%s|%s| %s\n",
			i+1,
			common.Beaut(label, labelWidth),
			common.Beaut(e.Time().Local().Format("2006-01-02 15:04:05"), 24),
			common.Beaut(in, 8),
			common.Beaut(e.Status, 11),
			e.ID,
		)
	}
	return b.String()
}
