package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/di/providers"
	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/listing"
	"github.com/linkstash/linkstash/internal/service"
)

func newSaveCmd(a *app) *cobra.Command {
	var req service.CaptureRequest

	cmd := &cobra.Command{
		Use:   "save [url]",
		Short: "Save a link",
		Long: `Save a link. Without a url argument, --text is searched for the first
http or https link.`,
		Example: `  linkstash save https://go.dev/blog --tags go,reading
  linkstash save --text "worth a look: https://example.com/post"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.URL = args[0]
			}
			capture := do.MustInvoke[*service.CaptureService](a.injector)
			item, err := capture.CaptureAndSave(cmd.Context(), req)
			if item == nil {
				return err
			}
			if perr := a.printItem(item); perr != nil {
				return perr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&req.Text, "text", "", "free text to take the link from")
	cmd.Flags().StringVar(&req.Title, "title", "", "title")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&req.SourceApp, "source", "", "app the link came from")
	cmd.Flags().StringSliceVarP(&req.TagNames, "tags", "t", nil, "comma-separated tag names")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		search  string
		tagName string
		primary string
		pages   int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved links, newest first",
		Long: `List saved links, newest first, 20 per page.

--pages 0 loads every page.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pf, err := domain.ParsePrimaryFilter(primary)
			if err != nil {
				return domainerrors.InvalidInput(err.Error())
			}
			filter := listing.Filter{Search: search, Primary: pf}
			if tagName != "" {
				tag, err := a.findTag(cmd, tagName)
				if err != nil {
					return err
				}
				filter.TagID = tag.ID
			}

			engine := do.MustInvoke[*providers.ListingHandle](a.injector)
			if err := engine.SetFilter(ctx, filter); err != nil {
				return err
			}
			for loaded := 1; pages <= 0 || loaded < pages; loaded++ {
				if !engine.Snapshot().HasMore {
					break
				}
				if err := engine.LoadMore(ctx); err != nil {
					return err
				}
			}

			snap := engine.Snapshot()
			if err := a.printItems(snap.Items); err != nil {
				return err
			}
			if snap.HasMore && a.output == outputTable {
				a.printf("more links available: pass --pages %d or --pages 0\n", pagesFor(len(snap.Items))+1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "match title, notes or url")
	cmd.Flags().StringVar(&tagName, "tag", "", "only links with this tag")
	cmd.Flags().StringVarP(&primary, "filter", "f", string(domain.FilterAll), "all, favorites or archived")
	cmd.Flags().IntVar(&pages, "pages", 1, "pages to load (0 for all)")
	return cmd
}

func pagesFor(n int) int {
	return (n + listing.PageSize - 1) / listing.PageSize
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := do.MustInvoke[*service.ItemService](a.injector)
			item, err := items.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printItem(item)
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var (
		url, title, notes string
		tags              []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a saved link",
		Long: `Edit a saved link. Only the flags given are changed; --tags "" removes
every tag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd service.ItemUpdate
			f := cmd.Flags()
			if f.Changed("url") {
				upd.Patch.URL = &url
			}
			if f.Changed("title") {
				upd.Patch.Title = &title
			}
			if f.Changed("notes") {
				upd.Patch.Notes = &notes
			}
			if f.Changed("tags") {
				upd.TagNames = append([]string{}, tags...)
			}
			if upd.Patch.IsEmpty() && upd.TagNames == nil {
				return domainerrors.InvalidInput("nothing to change: pass --url, --title, --notes or --tags")
			}

			items := do.MustInvoke[*service.ItemService](a.injector)
			item, err := items.Update(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			return a.printItem(item)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "new url")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&notes, "notes", "", "new notes")
	cmd.Flags().StringSliceVarP(&tags, "tags", "t", nil, "replace tags (comma-separated)")
	return cmd
}

func newFavoriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "favorite <id>",
		Aliases: []string{"fav"},
		Short:   "Toggle the favorite flag",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := do.MustInvoke[*service.ItemService](a.injector)
			item, err := items.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printItem(item)
		},
	}
}

func newArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Toggle the archived flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := do.MustInvoke[*service.ItemService](a.injector)
			item, err := items.ToggleArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printItem(item)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved links",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := do.MustInvoke[*service.ItemService](a.injector)
			for _, id := range args {
				if err := items.Delete(cmd.Context(), id); err != nil {
					return err
				}
				a.printf("deleted %s\n", id)
			}
			return nil
		},
	}
}
