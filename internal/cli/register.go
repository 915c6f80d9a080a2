package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FolkodeGroup/mediapp/pkg/api/client"
)

func newRegisterCommand(current func() *app) *cobra.Command {
	var in client.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			var err error
			if strings.TrimSpace(in.Username) == "" {
				if in.Username, err = a.prompt.line("Username: "); err != nil {
					return err
				}
			}
			if strings.TrimSpace(in.Email) == "" {
				if in.Email, err = a.prompt.line("Email: "); err != nil {
					return err
				}
			}
			if in.Password == "" {
				if in.Password, err = a.prompt.secret("Password: "); err != nil {
					return err
				}
			}
			in.Username = strings.TrimSpace(in.Username)
			in.Email = strings.TrimSpace(in.Email)
			if in.Username == "" || in.Email == "" || in.Password == "" {
				return errors.New("username, email and password are required")
			}

			ctx, cancel := requestContext(cmd, a)
			defer cancel()
			id, err := a.api.Register(ctx, in)
			if err != nil {
				var apiErr client.APIError
				if errors.As(err, &apiErr) && apiErr.Message != "" {
					a.println(errorStyle.Render(apiErr.Message))
					return ErrReported
				}
				return a.reportAPIError(err)
			}
			a.println(successStyle.Render("account created for " + in.Username))
			a.printf("id: %s\n", id)
			a.println(mutedStyle.Render("sign in with: mediapp login -u " + in.Username))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.Username, "username", "u", "", "Account username")
	f.StringVar(&in.Name, "name", "", "Display name")
	f.StringVar(&in.Email, "email", "", "Account email")
	f.StringVarP(&in.Password, "password", "p", "", "Password (supply to avoid the prompt)")
	f.StringVar(&in.Role, "role", "", "Role (the API defaults to medico)")
	return cmd
}
