package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/notekeeper/internal/session"
	"github.com/mmynk/notekeeper/pkg/docapi"
)

var errRemoteOnly = errors.New("accounts are only available with the remote driver")

func (a *app) authClient() (docapi.AuthServiceClient, error) {
	if a.files == nil {
		return nil, errRemoteOnly
	}
	httpClient := &http.Client{Timeout: a.cfg.Client.Timeout}
	return docapi.NewAuthServiceClient(httpClient, a.cfg.Client.Endpoint,
		docapi.WithBearerToken(a.files)), nil
}

// password returns the flag value, falling back to NOTES_PASSWORD.
func password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("NOTES_PASSWORD"); env != "" {
		return env, nil
	}
	return "", errors.New("password required: pass --password or set NOTES_PASSWORD")
}

func (a *app) saveSession(user *docapi.User, token string) error {
	if user == nil {
		return errors.New("server returned no user")
	}
	return a.files.Save(session.Session{
		User: session.User{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		Token:    token,
		Endpoint: a.cfg.Client.Endpoint,
	})
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name, pass string

	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(pass)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				client, err := a.authClient()
				if err != nil {
					return err
				}
				resp, err := client.Register(ctx, connect.NewRequest(&docapi.RegisterRequest{
					Email:       args[0],
					DisplayName: name,
					Password:    pw,
				}))
				if err != nil {
					return fmt.Errorf("failed to register: %w", err)
				}
				if err := a.saveSession(resp.Msg.User, resp.Msg.Token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", resp.Msg.User.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: part of the email before @)")
	cmd.Flags().StringVar(&pass, "password", "", "account password (or NOTES_PASSWORD)")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(pass)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				client, err := a.authClient()
				if err != nil {
					return err
				}
				resp, err := client.Login(ctx, connect.NewRequest(&docapi.LoginRequest{
					Email:    args[0],
					Password: pw,
				}))
				if err != nil {
					return fmt.Errorf("failed to log in: %w", err)
				}
				if err := a.saveSession(resp.Msg.User, resp.Msg.Token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", resp.Msg.User.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pass, "password", "", "account password (or NOTES_PASSWORD)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				client, err := a.authClient()
				if err != nil {
					return err
				}
				if a.files.Token() != "" {
					if _, err := client.Logout(ctx, connect.NewRequest(&docapi.LogoutRequest{})); err != nil {
						// The local session is removed regardless.
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server did not revoke the session: %v\n", err)
					}
				}
				if err := a.files.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				u, err := a.user()
				if err != nil {
					return err
				}
				if a.files == nil {
					fmt.Fprintln(cmd.OutOrStdout(), u.ID)
					return nil
				}

				client, err := a.authClient()
				if err != nil {
					return err
				}
				resp, err := client.GetCurrentUser(ctx, connect.NewRequest(&docapi.GetCurrentUserRequest{}))
				if err != nil {
					return fmt.Errorf("failed to get current user: %w", err)
				}
				me := resp.Msg.User
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", me.DisplayName, me.Email, me.ID)
				return nil
			})
		},
	}
}
