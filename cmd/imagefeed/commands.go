package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brizzai/imagefeed/internal/auth"
	"github.com/brizzai/imagefeed/internal/auth/handlers"
	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/brizzai/imagefeed/internal/server"
	"github.com/brizzai/imagefeed/internal/session"
	"github.com/brizzai/imagefeed/internal/tui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run `imagefeed login` first")

func signedIn(err error) error {
	if errors.Is(err, requester.ErrNoCredential) {
		return errNotSignedIn
	}
	return err
}

func newLoginCmd() *cobra.Command {
	var redirectURL, code string
	var listen bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Unsplash",
		Long: `Exchanges an authorization code for a bearer token and stores it.
Without --code or --redirect-url the consent page URL is printed and the
redirect URL (or the bare code) is read from the terminal. With --listen the
redirect is caught on the configured loopback redirect URI instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				authService *auth.Service
				sess        *session.Session
				cfg         *config.Config
			)
			return withApp(cmd, func(ctx context.Context) error {
				if code == "" && redirectURL != "" {
					parsed, err := auth.CodeFromRedirect(redirectURL)
					if err != nil {
						return err
					}
					code = parsed
				}
				if code == "" && listen {
					pterm.Info.Println("Open this URL and approve access:")
					pterm.Println(pterm.LightCyan(authService.AuthURL("")))
					received, err := handlers.WaitForCode(ctx, cfg.Unsplash.RedirectURI)
					if err != nil {
						return err
					}
					code = received
				}
				if code == "" {
					pterm.Info.Println("Open this URL, approve access and paste the page URL you land on:")
					pterm.Println(pterm.LightCyan(authService.AuthURL("")))
					input, err := pterm.DefaultInteractiveTextInput.Show("Redirect URL or code")
					if err != nil {
						return err
					}
					code = codeFromInput(input)
				}
				if code == "" {
					return auth.ErrInvalidRedirect
				}

				spinner, _ := pterm.DefaultSpinner.Start("Signing in...")
				p, err := sess.Login(ctx, code)
				if err != nil {
					spinner.Fail("Sign-in failed")
					return err
				}
				spinner.Success(fmt.Sprintf("Signed in as %s", p.LoginName))
				return nil
			}, &authService, &sess, &cfg)
		},
	}

	cmd.Flags().StringVar(&redirectURL, "redirect-url", "", "URL Unsplash redirected to after consent")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code")
	cmd.Flags().BoolVar(&listen, "listen", false, "Catch the redirect on the loopback unsplash.redirect_uri")
	return cmd
}

// codeFromInput accepts either a redirect URL or a bare code
func codeFromInput(input string) string {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		code, err := auth.CodeFromRedirect(input)
		if err != nil {
			return ""
		}
		return code
	}
	return input
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess *session.Session
			return withApp(cmd, func(ctx context.Context) error {
				if err := sess.Logout(ctx); err != nil {
					return err
				}
				pterm.Success.Println("Signed out")
				return nil
			}, &sess)
		},
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess *session.Session
			return withApp(cmd, func(ctx context.Context) error {
				p, err := sess.Restore(ctx)
				if err != nil {
					return signedIn(err)
				}
				printProfile(p)
				return nil
			}, &sess)
		},
	}
}

func printProfile(p profile.Profile) {
	pterm.DefaultSection.Println(p.Name)
	data := pterm.TableData{
		{"Login", p.LoginName},
		{"Bio", p.Bio},
		{"Avatar", p.AvatarURL},
	}
	_ = pterm.DefaultTable.WithData(data).Render()
}

func newFeedCmd() *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List photos from the feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1, got %d", pages)
			}
			var feedService *feed.Service
			return withApp(cmd, func(ctx context.Context) error {
				for i := 0; i < pages; i++ {
					if err := feedService.LoadNextPage(ctx); err != nil {
						return signedIn(err)
					}
				}
				printPhotos(feedService.Photos())
				return nil
			}, &feedService)
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to load")
	return cmd
}

func printPhotos(photos []feed.Photo) {
	data := pterm.TableData{{"ID", "Created", "Size", "Liked", "Description"}}
	for _, p := range photos {
		created := ""
		if p.CreatedAt != nil {
			created = p.CreatedAt.Format("2006-01-02")
		}
		liked := ""
		if p.Liked {
			liked = pterm.LightRed("♥")
		}
		data = append(data, []string{
			p.ID,
			created,
			fmt.Sprintf("%dx%d", p.Size.Width, p.Size.Height),
			liked,
			p.Description,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printfln("%s photos", pterm.LightGreen(len(photos)))
}

func newLikeCmd() *cobra.Command {
	var unlike bool

	cmd := &cobra.Command{
		Use:   "like <photo-id>",
		Short: "Like or unlike a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var feedService *feed.Service
			return withApp(cmd, func(ctx context.Context) error {
				if err := feedService.Like(ctx, args[0], !unlike); err != nil {
					return signedIn(err)
				}
				if unlike {
					pterm.Success.Printfln("Unliked %s", args[0])
				} else {
					pterm.Success.Printfln("Liked %s", args[0])
				}
				return nil
			}, &feedService)
		},
	}

	cmd.Flags().BoolVar(&unlike, "unlike", false, "Remove the like instead")
	return cmd
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the feed in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sess        *session.Session
				feedService *feed.Service
				avatars     *profile.ImageService
			)
			return withApp(cmd, func(ctx context.Context) error {
				p, err := sess.Restore(ctx)
				if err != nil {
					return signedIn(err)
				}
				return tui.Run(p, feedService, avatars)
			}, &sess, &feedService, &avatars)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the feed as MCP tools",
		Long:  "Starts an MCP server in the mode chosen with --mode (stdio, sse or http).",
		RunE: func(cmd *cobra.Command, args []string) error {
			var srv *server.Server
			return withApp(cmd, func(ctx context.Context) error {
				return srv.Start(ctx)
			}, &srv)
		},
	}
}
