// Package common provides shared helpers for the warpalarm CLI commands:
// countdown bars, error and help printing, and text formatting.
package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// VersionCmdStr holds the formatted version string displayed by the version command.
// It is populated at runtime by the Execute function with build-time information
// including version, platform, build date, and commit hash.
var VersionCmdStr string

var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp
)

// CountdownTotal is the total of a countdown bar started at from: the
// milliseconds until at, and at least 1.
func CountdownTotal(from, at time.Time) int64 {
	total := at.Sub(from).Milliseconds()
	if total < 1 {
		total = 1
	}
	return total
}

// InitCountdownBar adds a bar that fills as the deadline at approaches. Its
// total is CountdownTotal(from, at) and the caller advances it with
// SetCurrent. It completes with the text "fired".
func InitCountdownBar(p *mpb.Progress, name string, from, at time.Time) *mpb.Bar {
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")

	bar := p.New(CountdownTotal(from, at),
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(
				decor.Any(func(decor.Statistics) string {
					return Remaining(at).String()
				}, decor.WC{W: 10}), "fired",
			),
		),
	)
	return bar
}

// Remaining is the time left until at, truncated to tenths of a second and
// never negative.
func Remaining(at time.Time) time.Duration {
	d := time.Until(at)
	if d < 0 {
		return 0
	}
	return d.Truncate(100 * time.Millisecond)
}

// Help is the action of "warpalarm help [command]".
func Help(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" || name == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	return showCommandHelp(ctx, name)
}

// GetVersion is the action of "warpalarm version".
func GetVersion(*cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// PrintRuntimeErr reports an error that happened while a command was
// talking to the daemon or running a script, as
// "warpalarm: <cmd>[<action>]: <err>".
func PrintRuntimeErr(ctx *cli.Context, cmd, action string, err error) {
	if err == nil {
		return
	}
	name := os.Args[0]
	if ctx != nil && ctx.App != nil {
		name = ctx.App.HelpName
	}
	fmt.Printf("%s: %s[%s]: %v\n", name, cmd, action, err)
}

// PrintErrWithCmdHelp reports a usage error of the current command and
// shows its help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printUsageErr(ctx, err, func() {
		if err := showCommandHelp(ctx, ctx.Command.Name); err != nil {
			fmt.Println(err.Error())
		}
	})
}

// PrintErrWithHelp reports a usage error of the app itself, shows the app
// help and exits with status 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printUsageErr(ctx, err, func() {
		showAppHelpAndExit(ctx, 1)
	})
}

// printUsageErr turns "-h" and "-v" into the help and version output, which
// urfave/cli reports as usage errors when given after a command.
func printUsageErr(ctx *cli.Context, err error, showHelp func()) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case msg == "flag: help requested":
		return Help(ctx)
	case strings.HasSuffix(msg, "-v"), strings.HasSuffix(msg, "-version"):
		return GetVersion(ctx)
	}
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	showHelp()
	return nil
}

// UsageErrorCallback is the OnUsageError hook of the app and its commands.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}

// Beaut centers s in a column of width n for the list table. An odd
// remainder goes to the right.
func Beaut(s string, n int) string {
	pad := n - len(s)
	if pad <= 0 {
		return s
	}
	left := strings.Repeat(" ", pad/2)
	return left + s + left + strings.Repeat(" ", pad%2)
}
