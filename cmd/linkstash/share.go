package main

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/di/providers"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/share"
)

func newShareCmd(a *app) *cobra.Command {
	var (
		text          string
		fromClipboard bool
		sourceApp     string
	)

	cmd := &cobra.Command{
		Use:   "share [payload.json | -]",
		Short: "Save a link the way another app would share it",
		Long: `Hand a share payload to the share intake, as an app's share sheet would.

The payload is JSON: {"data": ..., "mimeType": ..., "extraData": {...}} where
data is a string, a list of strings or an object with a url or text field.
Use --text or --clipboard to share plain text instead.

When no one is signed in the share is kept in the inbox and saved by
"linkstash watch" after sign-in.`,
		Example: `  linkstash share --text "Great read https://example.com/post"
  echo '{"data": ["https://example.com"]}' | linkstash share -
  linkstash share --clipboard --source Safari`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.readPayload(args, text, fromClipboard)
			if err != nil {
				return err
			}
			if sourceApp != "" {
				if p.ExtraData == nil {
					p.ExtraData = map[string]any{}
				}
				p.ExtraData["sourceApp"] = sourceApp
			}

			ui := &consoleUI{app: a}
			do.ProvideValue[share.UI](a.injector, ui)
			intake := do.MustInvoke[*providers.ShareIntakeHandle](a.injector)

			if err := intake.Receive(cmd.Context(), p); err != nil {
				return err
			}

			saved, signIn, err := ui.outcome()
			if saved == nil && signIn {
				return a.keepForLater(intake, p)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "share this text")
	cmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "share the clipboard contents")
	cmd.Flags().StringVar(&sourceApp, "source", "", "name of the sharing app")
	cmd.MarkFlagsMutuallyExclusive("text", "clipboard")
	return cmd
}

func (a *app) readPayload(args []string, text string, fromClipboard bool) (share.Payload, error) {
	switch {
	case text != "":
		if len(args) > 0 {
			return share.Payload{}, domainerrors.InvalidInput("pass a payload file or --text, not both")
		}
		return share.Payload{Data: share.Text(text), MimeType: "text/plain"}, nil
	case fromClipboard:
		if len(args) > 0 {
			return share.Payload{}, domainerrors.InvalidInput("pass a payload file or --clipboard, not both")
		}
		content, err := clipboard.ReadAll()
		if err != nil {
			return share.Payload{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to read clipboard")
		}
		return share.Payload{Data: share.Text(content), MimeType: "text/plain"}, nil
	case len(args) == 1:
		var r io.Reader = a.in
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return share.Payload{}, domainerrors.Wrapf(err, domainerrors.CodeInvalidInput, "failed to open %s", args[0])
			}
			defer f.Close()
			r = f
		}
		p, err := share.DecodePayload(r)
		if err != nil {
			return share.Payload{}, domainerrors.Wrap(err, domainerrors.CodeUnsupportedShare, "this share could not be read")
		}
		return p, nil
	default:
		return share.Payload{}, domainerrors.InvalidInput("nothing to share: pass a payload file, --text or --clipboard")
	}
}

// keepForLater moves a share that is waiting for sign-in into the inbox.
func (a *app) keepForLater(intake *providers.ShareIntakeHandle, p share.Payload) error {
	src := do.MustInvoke[*share.DirSource](a.injector)
	path, err := src.Drop(p)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to keep share for later")
	}
	intake.Abandon()

	a.logger().Debug("share kept for later", "path", path)
	a.printf("share kept in the inbox; run \"linkstash watch\" after signing in to save it\n")
	return nil
}
