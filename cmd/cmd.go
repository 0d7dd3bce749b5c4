package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "rpc-addr",
		Usage:  "address of the warpalarm daemon",
		Value:  sharedcommon.DefaultRPCAddr,
		EnvVar: sharedcommon.RPCAddrEnv,
	},
	cli.StringFlag{
		Name:   "secret",
		Usage:  "JSON-RPC bearer token",
		EnvVar: sharedcommon.RPCSecretEnv,
	},
	cli.BoolFlag{
		Name:   "debug",
		Usage:  "enable debug logs",
		EnvVar: sharedcommon.DebugEnv,
	},
}

func Execute(args []string, bArgs BuildArgs) error {
	if bArgs.Version != "" {
		sharedcommon.Version = bArgs.Version
	}
	if bArgs.Commit != "" {
		sharedcommon.Commit = bArgs.Commit
	}
	if bArgs.BuildType != "" {
		sharedcommon.BuildType = bArgs.BuildType
	}
	app := cli.App{
		Name:                  "warpalarm",
		HelpName:              "warpalarm",
		Usage:                 "Per-thread alarm scheduling.",
		Version:               fmt.Sprintf("%s-%s", sharedcommon.Version, sharedcommon.BuildType),
		UsageText:             "warpalarm [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "start the alarm daemon",
				Description:        DaemonDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             daemon,
				Flags:              daemonFlags,
			},
			{
				Name:               "run",
				Usage:              "run a JavaScript file with alarms",
				UsageText:          "<script.js>",
				Description:        RunDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             run,
				Flags:              runFlags,
			},
			{
				Name:                   "add",
				Aliases:                []string{"a"},
				Usage:                  "schedule an alarm in the daemon",
				Description:            AddDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Action:                 add,
				Flags:                  addFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "display installed alarms",
				Description:        ListDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             list,
				Flags:              lsFlags,
			},
			{
				Name:               "cancel",
				Aliases:            []string{"rm"},
				Usage:              "remove an alarm",
				UsageText:          "<alarm id>",
				Description:        CancelDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             cancelAlarm,
			},
			{
				Name:               "uninstall",
				Usage:              "take an alarm out of the schedule",
				UsageText:          "<alarm id>",
				Description:        UninstallDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             uninstall,
			},
			{
				Name:               "install",
				Usage:              "put an uninstalled alarm back",
				UsageText:          "<alarm id>",
				Description:        InstallDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             install,
			},
			{
				Name:               "reinstall",
				Usage:              "move an alarm to a new deadline",
				UsageText:          "--in <duration> <alarm id>",
				Description:        ReinstallDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             reinstall,
				Flags:              reinstallFlags,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "show countdowns and fired alarms",
				Description:        WatchDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             watch,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of warpalarm",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
