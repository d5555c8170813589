package main

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/domain"
	domainerrors "github.com/linkstash/linkstash/internal/errors"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/util"
)

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTags(a, cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List tags with their link counts",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listTags(a, cmd)
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a tag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				owner, err := a.ownerID()
				if err != nil {
					return err
				}
				tags := do.MustInvoke[*service.TagService](a.injector)
				tag, err := tags.CreateTag(cmd.Context(), owner, args[0])
				if err != nil {
					return err
				}
				return a.printTags([]*domain.Tag{tag})
			},
		},
		&cobra.Command{
			Use:     "delete <name>",
			Aliases: []string{"rm"},
			Short:   "Delete a tag and unlink it from every link",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tag, err := a.findTag(cmd, args[0])
				if err != nil {
					return err
				}
				owner, err := a.ownerID()
				if err != nil {
					return err
				}
				tags := do.MustInvoke[*service.TagService](a.injector)
				if err := tags.DeleteTag(cmd.Context(), owner, tag.ID); err != nil {
					return err
				}
				a.printf("deleted tag %s\n", tag.Name)
				return nil
			},
		},
		newSuggestCmd(a),
	)
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest [partial name]",
		Short: "Suggest existing tags for a partial name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := a.ownerID()
			if err != nil {
				return err
			}
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			tags := do.MustInvoke[*service.TagService](a.injector)
			found, err := tags.SuggestTags(cmd.Context(), owner, query, limit)
			if err != nil {
				return err
			}
			return a.printTags(found)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum suggestions (0 for all)")
	return cmd
}

func listTags(a *app, cmd *cobra.Command) error {
	owner, err := a.ownerID()
	if err != nil {
		return err
	}
	tags := do.MustInvoke[*service.TagService](a.injector)
	list, err := tags.ListTags(cmd.Context(), owner)
	if err != nil {
		return err
	}
	return a.printTags(list)
}

// findTag resolves a tag by name, ignoring case and surrounding space.
func (a *app) findTag(cmd *cobra.Command, name string) (*domain.Tag, error) {
	owner, err := a.ownerID()
	if err != nil {
		return nil, err
	}
	key := util.TagKey(name)
	if key == "" {
		return nil, domainerrors.InvalidInput("tag name cannot be empty")
	}

	tags := do.MustInvoke[*service.TagService](a.injector)
	list, err := tags.ListTags(cmd.Context(), owner)
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if t.NameKey == key {
			return t, nil
		}
	}
	return nil, domainerrors.NotFoundf("no tag named %q", name)
}
