package main

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/di"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/session"
)

// app carries what every command shares: streams, flags and the container.
type app struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	flags    config.Overrides
	output   string
	injector *do.RootScope
}

// execute runs one command line. The container is released afterwards even
// when the command fails.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	defer a.shutdown()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkstash",
		Short: "Save, tag and browse links",
		Long: `linkstash keeps a personal stash of links.

Links are saved with "save", browsed with "list" and edited in place.
Links shared from other apps land in the share inbox and are saved by "watch".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch a.output {
			case outputTable, outputJSON, outputYAML:
			default:
				return domainerrors.InvalidInputf("unknown output format %q (table, json or yaml)", a.output)
			}

			a.injector = di.NewContainer(a.flags)
			return di.Bootstrap(a.injector)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.flags.EnvFile, "env-file", "", "path to a .env file (default .env)")
	pf.StringVar(&a.flags.Environment, "env", "", "environment: development, staging or production")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&a.flags.DataPath, "data", "", "data directory (default ~/.linkstash)")
	pf.StringVar(&a.flags.Backend, "store", "", "store backend: sqlite or badger")
	pf.StringVar(&a.flags.StorePath, "store-path", "", "database file or directory")
	pf.StringVarP(&a.flags.UserID, "user", "u", "", "signed-in user id")
	pf.StringVar(&a.flags.InboxPath, "inbox", "", "share inbox directory")
	pf.StringVar(&a.flags.SettleDelay, "settle", "", "quiet period before an inbox file is read")
	pf.StringVar(&a.flags.Enrich, "enrich", "", "fetch page titles for untitled links (true or false)")
	pf.StringVar(&a.flags.EnrichTimeout, "enrich-timeout", "", "page fetch timeout")
	pf.StringVarP(&a.output, "output", "o", outputTable, "output format: table, json or yaml")

	cmd.AddCommand(
		newSaveCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newFavoriteCmd(a),
		newArchiveCmd(a),
		newDeleteCmd(a),
		newTagsCmd(a),
		newShareCmd(a),
		newWatchCmd(a),
	)

	return cmd
}

// shutdown releases the container. Safe to call when it was never built.
func (a *app) shutdown() {
	if a.injector == nil {
		return
	}
	log, logErr := do.Invoke[*logger.Logger](a.injector)
	if err := a.injector.Shutdown(); err != nil && err.Error() != "" {
		if logErr == nil {
			log.WithError(err).Warn("shutdown error")
		} else {
			fmt.Fprintln(a.errOut, "shutdown error:", err)
		}
	}
	a.injector = nil
}

func (a *app) logger() *logger.Logger {
	return do.MustInvoke[*logger.Logger](a.injector)
}

// ownerID returns the signed-in user, or UNAUTHENTICATED.
func (a *app) ownerID() (string, error) {
	sess := do.MustInvoke[*session.Context](a.injector)
	if id := sess.UserID(); id != "" {
		return id, nil
	}
	return "", domainerrors.Unauthenticated("sign in first: pass --user or set LINKSTASH_USER")
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
