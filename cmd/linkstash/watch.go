package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/di/providers"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/listing"
	"github.com/linkstash/linkstash/internal/share"
)

func newWatchCmd(a *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Save links shared into the inbox as they arrive",
		Long: `Watch the share inbox and save each link dropped into it. The newest
share already waiting is handled first.

With --once only the waiting share is handled and the command exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := &consoleUI{app: a, echo: true}
			do.ProvideValue[share.UI](a.injector, ui)

			if once {
				return a.drainInbox(cmd.Context())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			last := -1
			do.ProvideValue(a.injector, listing.Options{
				OnChange: func(s listing.Snapshot) {
					if s.Loading || s.Refreshing || s.LoadingMore {
						return
					}
					if s.Error != nil {
						fmt.Fprintln(a.errOut, "error:", domainerrors.Message(s.Error))
						return
					}
					if n := len(s.Items); n != last {
						last = n
						a.printf("%d recent links\n", n)
					}
				},
			})

			engine := do.MustInvoke[*providers.ListingHandle](a.injector)
			if err := engine.Start(ctx); err != nil {
				return err
			}
			if err := engine.LoadInitial(ctx); err != nil {
				return err
			}

			intake := do.MustInvoke[*providers.ShareIntakeHandle](a.injector)
			src := do.MustInvoke[*share.DirSource](a.injector)
			if err := intake.Start(ctx, src); err != nil {
				return err
			}

			a.logger().Info("watching for shares, press Ctrl+C to stop")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "handle the waiting share and exit")
	return cmd
}

// drainInbox saves the newest waiting share, if any.
func (a *app) drainInbox(ctx context.Context) error {
	src := do.MustInvoke[*share.DirSource](a.injector)
	p, ok, err := src.InitialShare()
	if err != nil {
		return err
	}
	if !ok {
		a.printf("no waiting share\n")
		return nil
	}

	intake := do.MustInvoke[*providers.ShareIntakeHandle](a.injector)
	if err := intake.Receive(ctx, p); err != nil {
		return err
	}
	if intake.State() == share.StatePendingDecision {
		return a.keepForLater(intake, p)
	}
	return nil
}
