package cmd

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/pkg/alarmcli"
	"github.com/warpdl/warpalarm/pkg/logger"
)

func getLogger(ctx *cli.Context) logger.Logger {
	return logger.NewStandardLogger(log.New(os.Stderr, "warpalarm: ", log.LstdFlags), ctx.GlobalBool("debug"))
}

func newClient(ctx *cli.Context) (*alarmcli.Client, error) {
	return alarmcli.NewClient(ctx.GlobalString("rpc-addr"), ctx.GlobalString("secret"), nil)
}

func rpcContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DEF_RPC_TIMEOUT)
}
