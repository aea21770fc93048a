package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trezcool/masomo-portal/core/portal"
)

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the unread notification count until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd)
		},
	}
}

// watch runs the notification poller and the cache sweeper until ctx is done.
func (a *app) watch(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	go a.cache.Sweep(ctx, a.cache.TTL())

	poller := portal.NewNotificationPoller(a.svc, a.conf.Portal.PollInterval,
		func(count int) {
			fmt.Fprintf(out, "Unread notifications: %d\n", count)
		},
		portal.OnPollError(func(err error) {
			fmt.Fprintf(out, "! %s\n", describe(err))
		}),
	)
	poller.Run(ctx)
	return nil
}
