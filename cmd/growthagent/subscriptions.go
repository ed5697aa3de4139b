package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"GrowthAgent/internal/app"
	"GrowthAgent/internal/domain"
)

func newSubscriptionsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage followed creators and feeds",
	}
	cmd.AddCommand(
		newAddCreatorCommand(opts),
		newAddFeedCommand(opts),
		newListSubscriptionsCommand(opts),
	)
	return cmd
}

func newAddCreatorCommand(opts *rootOptions) *cobra.Command {
	var creator domain.CreatorSubscription
	cmd := &cobra.Command{
		Use:   "add-creator <user-id> <username>",
		Short: "Follow an X account by its numeric id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			creator.ID, creator.Username = args[0], args[1]
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				added, err := a.Subscriptions().AddCreator(ctx, creator)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "following @%s (%s)\n", added.Username, added.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&creator.DisplayName, "display-name", "", "display name")
	cmd.Flags().IntVar(&creator.FollowersCount, "followers", 0, "follower count at subscription time")
	return cmd
}

func newAddFeedCommand(opts *rootOptions) *cobra.Command {
	var (
		feed     domain.FeedSubscription
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "add-feed <url>",
		Short: "Follow an RSS or Atom feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed.URL = args[0]
			if inactive {
				feed.Status = domain.FeedInactive
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				added, err := a.Subscriptions().AddFeed(ctx, feed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "following %s (%s)\n", added.Title, added.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&feed.Title, "title", "", "feed title (default the host name)")
	cmd.Flags().StringVar(&feed.Category, "category", "", "category label")
	cmd.Flags().StringVar(&feed.Language, "language", "", "content language")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "store the feed without fetching it")
	return cmd
}

func newListSubscriptionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List followed creators and feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				creators, feeds, err := a.Subscriptions().List(ctx)
				if err != nil {
					return err
				}
				renderSubscriptions(cmd.OutOrStdout(), creators, feeds)
				return nil
			})
		},
	}
}
