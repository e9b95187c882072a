package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd(c))
	return cmd
}

func newUserCreateCmd(c *cli) *cobra.Command {
	var in entities.NewUser
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with its role profile",
		Example: `  chemstock user create --email admin@uni.edu --name "Lab Admin" \
      --password 's3cret-pass' --role admin --number STF-001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			in.Role = entities.Role(role)
			user, err := a.services.Auth.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(entities.RoleStudent), "admin, lab_assistant, lecturer or student")
	cmd.Flags().StringVar(&in.ProfileNumber, "number", "", "staff, lecturer or student number")
	for _, f := range []string{"email", "name", "password", "number"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
