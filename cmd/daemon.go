package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
	alarmd "github.com/warpdl/warpalarm/internal/daemon"
)

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "notifier",
		Usage:  `how due alarms reach their thread: "interrupt" or "poll"`,
		Value:  "interrupt",
		EnvVar: sharedcommon.NotifierEnv,
	},
	cli.IntFlag{
		Name:   "max-events",
		Usage:  "maximum number of live alarms, 0 for no limit",
		EnvVar: sharedcommon.MaxEventsEnv,
	},
}

func daemon(ctx *cli.Context) error {
	l := getLogger(ctx)
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := alarmd.New(&alarmd.Config{
		Addr:      ctx.GlobalString("rpc-addr"),
		Secret:    ctx.GlobalString("secret"),
		Notifier:  ctx.String("notifier"),
		MaxEvents: ctx.Int("max-events"),
	}, &alarmd.Dependencies{Logger: l})
	err := r.Start(sigCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "daemon", "start", err)
	}
	return nil
}
