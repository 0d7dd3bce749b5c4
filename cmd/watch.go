package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/warpalarm/cmd/common"
	sharedcommon "github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/pkg/alarmcli"
)

// missedAfter is how long past its deadline a bar waits for the fired
// notification before it is dropped.
const missedAfter = 5 * time.Second

type countdown struct {
	at    time.Time
	start time.Time
	bar   *mpb.Bar
	done  bool
}

func (c *countdown) tick(now time.Time) {
	// the bar completes on the fired notification, not on the clock
	elapsed := now.Sub(c.start).Milliseconds()
	if total := common.CountdownTotal(c.start, c.at); elapsed >= total {
		elapsed = total - 1
	}
	if elapsed > c.bar.Current() {
		c.bar.SetCurrent(elapsed)
	}
}

func (c *countdown) fire() {
	c.done = true
	c.bar.SetTotal(-1, true)
}

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fired := make(chan *sharedcommon.AlarmFiredNotification, 64)
	client, err := alarmcli.DialWebSocket(sigCtx, ctx.GlobalString("rpc-addr"), ctx.GlobalString("secret"),
		func(n *sharedcommon.AlarmFiredNotification) {
			select {
			case fired <- n:
			default:
			}
		})
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "dial", err)
		return nil
	}
	defer client.Close()

	rctx, cancel := rpcContext()
	entries, err := client.List(rctx, &sharedcommon.ListParams{})
	cancel()
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "get_list", err)
		return nil
	}

	p := mpb.NewWithContext(sigCtx, mpb.WithOutput(ctx.App.Writer), mpb.WithRefreshRate(DEF_WATCH_TICK))
	now := time.Now()
	bars := make(map[string]*countdown)
	for _, e := range entries {
		if e.Status == "done" {
			continue
		}
		name := e.Callback
		if name == "" {
			name = e.ID
		}
		bars[e.ID] = &countdown{
			at:    e.Time(),
			start: now,
			bar:   common.InitCountdownBar(p, name, now, e.Time()),
		}
	}
	if len(bars) == 0 {
		p.Wait()
		fmt.Fprintln(ctx.App.Writer, "warpalarm: no pending alarms")
		return nil
	}

	ticker := time.NewTicker(DEF_WATCH_TICK)
	defer ticker.Stop()
	pending, firedCount := len(bars), 0
	for pending > 0 {
		select {
		case <-sigCtx.Done():
			for _, c := range bars {
				if !c.done {
					c.bar.Abort(false)
				}
			}
			p.Wait()
			return nil
		case n := <-fired:
			c, ok := bars[n.ID]
			if !ok || c.done {
				continue
			}
			c.fire()
			pending--
			firedCount++
		case t := <-ticker.C:
			for _, c := range bars {
				if c.done {
					continue
				}
				if t.Sub(c.at) > missedAfter {
					// cancelled or rescheduled elsewhere
					c.done = true
					c.bar.Abort(false)
					pending--
					continue
				}
				c.tick(t)
			}
		}
	}
	p.Wait()
	fmt.Fprintf(ctx.App.Writer, "warpalarm: %d of %d alarms fired\n", firedCount, len(bars))
	return nil
}
