package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"goodthings/cmd/app"
	"goodthings/internal/blogapi"
	"goodthings/internal/config"
	"goodthings/internal/controller"
	"goodthings/internal/logging"
	"goodthings/internal/models"
	"goodthings/internal/state"
)

type options struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Terminal client for the GoodThings blog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		statusCmd(opts),
		loginCmd(opts),
		registerCmd(opts),
		logoutCmd(opts),
		postsCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

// withSession loads configuration, restores the session the way a fresh
// start would and hands the controller to fn.
func withSession(cmd *cobra.Command, opts *options, fn func(ctx context.Context, c *controller.Controller) error) error {
	if opts.configPath != "" {
		if err := os.Setenv("GOODTHINGS_CONFIG", opts.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.New(cmd.ErrOrStderr(), level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ctrl, store, err := app.NewController(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		logger.Debug("startup bootstrap incomplete", "error", err)
	}

	return fn(ctx, ctrl)
}

func requireLogin(c *controller.Controller) error {
	if !c.Session().Authenticated() {
		return errors.New("not logged in; run `goodthings login` first")
	}
	return nil
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				renderStatus(cmd.OutOrStdout(), c.Snapshot(), time.Now())
				return nil
			})
		},
	}
}

func loginCmd(opts *options) *cobra.Command {
	var creds models.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				if err := c.Login(ctx, creds); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", c.Session().User)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", os.Getenv("GOODTHINGS_PASSWORD"), "Account password (default $GOODTHINGS_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func registerCmd(opts *options) *cobra.Command {
	var reg models.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				if err := c.Register(ctx, reg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", c.Session().User)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", os.Getenv("GOODTHINGS_PASSWORD"), "Account password (default $GOODTHINGS_PASSWORD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				c.Logout(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func postsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Work with your posts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your posts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					renderPosts(cmd.OutOrStdout(), c.Snapshot().Posts)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one post",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					post, err := c.SelectPost(args[0])
					if err != nil {
						return err
					}
					renderPost(cmd.OutOrStdout(), post)
					return nil
				})
			},
		},
		postCreateCmd(opts),
		postUpdateCmd(opts),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a post",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
					if err := requireLogin(c); err != nil {
						return err
					}
					if err := c.DeletePost(ctx, args[0]); err != nil {
						return err
					}
					renderPosts(cmd.OutOrStdout(), c.Snapshot().Posts)
					return nil
				})
			},
		},
	)

	return cmd
}

func postCreateCmd(opts *options) *cobra.Command {
	var draft models.PostDraft

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				if err := requireLogin(c); err != nil {
					return err
				}
				post, err := c.CreatePost(ctx, draft)
				if err != nil {
					return err
				}
				renderPost(cmd.OutOrStdout(), *post)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&draft.Title, "title", "", "Post title")
	cmd.Flags().StringVar(&draft.Body, "body", "", "Post body")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func postUpdateCmd(opts *options) *cobra.Command {
	var title, body string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a post; omitted fields keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, c *controller.Controller) error {
				if err := requireLogin(c); err != nil {
					return err
				}
				current, err := c.SelectPost(args[0])
				if err != nil {
					return err
				}

				draft := models.PostDraft{Title: current.Title, Body: current.Body}
				if cmd.Flags().Changed("title") {
					draft.Title = title
				}
				if cmd.Flags().Changed("body") {
					draft.Body = body
				}

				post, err := c.UpdatePost(ctx, args[0], draft)
				if err != nil {
					return err
				}
				renderPost(cmd.OutOrStdout(), *post)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&body, "body", "", "New body")

	return cmd
}

func renderStatus(w io.Writer, st state.State, now time.Time) {
	server := st.ServerInfo
	if server == "" {
		server = "unreachable"
	}
	fmt.Fprintf(w, "Backend:  %s\n", server)

	if !st.Session.Authenticated() {
		fmt.Fprintln(w, "Session:  not logged in")
		return
	}

	fmt.Fprintf(w, "Session:  logged in as %s\n", st.Session.User)
	if exp, ok := blogapi.TokenExpiry(st.Session.Token); ok {
		fmt.Fprintf(w, "Expires:  %s (in %s)\n", exp.Local().Format(time.RFC1123), exp.Sub(now).Round(time.Minute))
	}
	fmt.Fprintf(w, "Posts:    %d\n", len(st.Posts))
}

func renderPosts(w io.Writer, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
	for _, p := range posts {
		updated := "-"
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Title, updated)
	}
	tw.Flush()
}

func renderPost(w io.Writer, p models.Post) {
	fmt.Fprintf(w, "%s  [%s]\n", p.Title, p.ID)
	if p.Body != "" {
		fmt.Fprintf(w, "\n%s\n", p.Body)
	}
}
