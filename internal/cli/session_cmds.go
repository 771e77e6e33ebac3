package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the tokens for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.New())
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			a.session.Boot(ctx)
			if err := a.session.SignIn(ctx, a.client, username, password); err != nil {
				var apiErr *auth.APIError
				if errors.As(err, &apiErr) {
					return errors.New(apiErr.Message)
				}
				return err
			}

			identity := a.session.CurrentIdentity()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", identity.Username, identity.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.New())
			if err != nil {
				return err
			}
			a.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Validate the stored token and show who it belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.New())
			if err != nil {
				return err
			}
			a.session.Boot(cmd.Context())
			return printState(cmd.OutOrStdout(), a.session.State(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var req auth.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new shopper account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.New())
			if err != nil {
				return err
			}
			if err := a.client.Register(cmd.Context(), req); err != nil {
				var apiErr *auth.APIError
				if errors.As(err, &apiErr) {
					return errors.New(apiErr.Message)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, you can now log in\n", req.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	cmd.Flags().StringVar(&req.Name, "name", "", "First name")
	cmd.Flags().StringVar(&req.Surname, "surname", "", "Surname")
	cmd.Flags().StringVar(&req.BirthDate, "birth-date", "", "Birth date, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	return cmd
}

func printState(w io.Writer, state session.State, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	if state.Identity == nil {
		fmt.Fprintln(w, "Not logged in")
		return nil
	}
	fmt.Fprintf(w, "User:  %s\nId:    %d\nRole:  %s\n", state.Identity.Username, state.Identity.UserID, state.Identity.Role)
	return nil
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
