package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/internal/scheduler"
)

var (
	errNoDeadline    = errors.New("one of --in, --at or --cron is required")
	errManyDeadlines = errors.New("--in, --at and --cron are mutually exclusive")

	addFlags = []cli.Flag{
		cli.DurationFlag{
			Name:  "in, i",
			Usage: "fire after this long, e.g. 90s or 1h30m",
		},
		cli.StringFlag{
			Name:  "at",
			Usage: "fire at this time, RFC 3339 or seconds since the Unix epoch",
		},
		cli.StringFlag{
			Name:  "cron",
			Usage: "fire at the next occurrence of a 5-field cron expression",
		},
		cli.StringFlag{
			Name:  "label, l",
			Usage: "describe the alarm in listings and notifications",
		},
		cli.BoolFlag{
			Name:  "auto-remove, r",
			Usage: "remove the alarm once it has fired",
		},
		cli.BoolFlag{
			Name:  "no-install",
			Usage: `create the alarm without scheduling it, see "install"`,
		},
	}
)

// parseAt accepts RFC 3339 or fractional epoch seconds.
func parseAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or epoch seconds", s)
	}
	return sharedcommon.FromSeconds(sec), nil
}

// deadline resolves the absolute deadline for --at or --cron. It reports
// false when --in was given, in which case the daemon's clock applies.
func deadline(in time.Duration, at, cron string, now time.Time) (time.Time, bool, error) {
	set := 0
	for _, given := range []bool{in != 0, at != "", cron != ""} {
		if given {
			set++
		}
	}
	switch {
	case set == 0:
		return time.Time{}, false, errNoDeadline
	case set > 1:
		return time.Time{}, false, errManyDeadlines
	case at != "":
		t, err := parseAt(at)
		return t, true, err
	case cron != "":
		if err := scheduler.Validate(cron); err != nil {
			return time.Time{}, false, err
		}
		t, err := scheduler.NextOccurrence(cron, now)
		return t, true, err
	}
	return time.Time{}, false, nil
}

func add(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	in := ctx.Duration("in")
	at, absolute, err := deadline(in, ctx.String("at"), ctx.String("cron"), time.Now())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "new_client", err)
		return nil
	}
	defer client.Close()

	opts := &sharedcommon.ScheduleOptions{
		Label:      ctx.String("label"),
		AutoRemove: ctx.Bool("auto-remove"),
		NoInstall:  ctx.Bool("no-install"),
	}
	rctx, cancel := rpcContext()
	defer cancel()
	var id string
	if absolute {
		id, err = client.ScheduleAt(rctx, at, opts)
	} else {
		at = time.Now().Add(in)
		id, err = client.ScheduleAfter(rctx, in, opts)
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "schedule", err)
		return nil
	}
	fmt.Fprintf(ctx.App.Writer, "%s\n", id)
	if opts.NoInstall {
		fmt.Fprintf(ctx.App.Writer, "created, not installed (deadline %s)\n", at.Format(time.RFC3339))
	} else {
		fmt.Fprintf(ctx.App.Writer, "fires at %s\n", at.Format(time.RFC3339))
	}
	return nil
}
