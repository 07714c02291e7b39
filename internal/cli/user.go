package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/clinic-chat/internal/credential"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/ui/userpicker"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current chat user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Fprintln(cmd.OutOrStdout(), describeUser(rt.user))
			return nil
		},
	}
}

func describeUser(u model.User) string {
	if u.IsAnonymous() {
		return u.ID + " (anonymous, run clinicchat login to choose a user)"
	}
	return fmt.Sprintf("%s [%s]", u.Label(), u.ID)
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Choose the chat user and store the API token",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	cmd.Flags().String("user", "", "User id to log in as, skipping the chooser")
	cmd.Flags().String("token", "", "API token to store in the keyring")
	cmd.Flags().Bool("ask-token", false, "Prompt for the API token")
	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	token, _ := cmd.Flags().GetString("token")
	askToken, _ := cmd.Flags().GetBool("ask-token")

	if askToken {
		if err := huh.NewInput().
			Title("API token").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run(); err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
	}
	if token = strings.TrimSpace(token); token != "" {
		creds, err := credential.Open()
		if err != nil {
			return err
		}
		if err := creds.SetToken(token); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API token stored.")
	}

	rt, err := loadRuntime(cmd, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	users, err := rt.backend.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	if len(users) == 0 {
		return errors.New("the backend returned no users")
	}

	if userID == "" {
		if err := userpicker.NewForm(users, rt.user, &userID).Run(); err != nil {
			return fmt.Errorf("choosing user: %w", err)
		}
	}
	u, ok := userpicker.Find(users, userID)
	if !ok {
		return fmt.Errorf("unknown user %q", userID)
	}

	if err := rt.store.SaveProfile(ctx, u); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", describeUser(u))
	return nil
}
