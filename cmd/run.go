package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/internal/jsrt"
	"github.com/warpdl/warpalarm/pkg/alarm"
)

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "notifier",
		Usage:  `how due alarms reach the script: "interrupt" or "poll"`,
		Value:  "interrupt",
		EnvVar: sharedcommon.NotifierEnv,
	},
	cli.DurationFlag{
		Name:  "timeout",
		Usage: "stop the script after this long, 0 for no limit",
	},
}

func run(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no script given"))
	}
	n, err := alarm.NotifierByName(ctx.String("notifier"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "notifier", err)
		return nil
	}
	l := getLogger(ctx)
	sched := alarm.New(&alarm.Config{Notifier: n, Logger: l})
	defer sched.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if t := ctx.Duration("timeout"); t > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, t)
		defer cancel()
	}

	err = jsrt.Run(runCtx, sched, path, &jsrt.Options{
		Fs:     afero.NewOsFs(),
		Logger: l,
		Stdout: ctx.App.Writer,
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, context.DeadlineExceeded):
		l.Warning("%s: stopped after %s with alarms still armed", path, ctx.Duration("timeout"))
	default:
		common.PrintRuntimeErr(ctx, "run", "script", err)
	}
	return nil
}
