package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseph-Bethune/Gabble-Live/internal/bootstrap"
	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/seed"
)

func (a *admin) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := database.Migrate(ctx, rt.DB); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
}

func (a *admin) seedCmd() *cobra.Command {
	var opts seed.Options

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo users, threads and reactions",
		Long: `Register demo accounts and write posts, replies and reactions among them.

Examples:
  gabble-admin seed --users 20 --posts 100
  gabble-admin seed --users 5 --posts 30 --seed 42   # reproducible content`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				res, err := seed.NewSeeder(rt.Auth, rt.Posts, opts.Seed).Run(ctx, opts)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(cmd.OutOrStdout(), res)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %d users, %d posts (%d replies), %d reactions\n",
					len(res.UserIDs), res.Posts, res.Replies, res.Reactions)
				fmt.Fprintf(out, "Seeded accounts use the password %s\n", seed.DefaultPassword)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Users, "users", 10, "Number of users to create")
	cmd.Flags().IntVar(&opts.Posts, "posts", 50, "Number of posts to create")
	cmd.Flags().IntVar(&opts.ReplyPercent, "reply-percent", 40, "Chance (0-100) that a post replies to an earlier one")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed for generated content (0 picks one)")
	return cmd
}

func (a *admin) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Inspect accounts",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				listing, err := rt.Users.ListUsers(ctx, limit, offset)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(cmd.OutOrStdout(), listing)
				}
				if len(listing) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users found")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "ID\tDISPLAY NAME\tEMAIL\tROLES\tCREATED")
				for _, u := range listing {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						u.UserID, u.DisplayName, u.Email, roleNames(u.Roles), u.CreatedAt.Format(time.DateTime))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of users to list")
	list.Flags().IntVar(&offset, "offset", 0, "Number of users to skip")

	users.AddCommand(list)
	return users
}

func (a *admin) rolesCmd() *cobra.Command {
	roles := &cobra.Command{
		Use:   "roles",
		Short: "Grant or revoke account roles",
		Long: `Grant or revoke roles. A role is given by name (user, editor, admin)
or by numeric code. Changes apply to the next request the user makes.`,
	}

	change := func(use, short, verb string, apply func(ctx context.Context, rt *bootstrap.Runtime, userID string, role models.Role) (*models.User, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <userId> <role>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				role, err := models.ParseRole(args[1])
				if err != nil {
					return err
				}
				return a.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
					user, err := apply(ctx, rt, args[0], role)
					if err != nil {
						return err
					}
					if a.jsonOutput {
						return a.printJSON(cmd.OutOrStdout(), user)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s for %s, roles now: %s\n",
						verb, role, user.DisplayName, roleNames(user.RoleList()))
					return nil
				})
			},
		}
	}

	roles.AddCommand(
		change("grant", "Grant a role to a user", "Granted",
			func(ctx context.Context, rt *bootstrap.Runtime, userID string, role models.Role) (*models.User, error) {
				return rt.Users.GrantRole(ctx, userID, role)
			}),
		change("revoke", "Revoke a role from a user", "Revoked",
			func(ctx context.Context, rt *bootstrap.Runtime, userID string, role models.Role) (*models.User, error) {
				return rt.Users.RevokeRole(ctx, userID, role)
			}),
	)
	return roles
}

func roleNames(roles []models.Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}
