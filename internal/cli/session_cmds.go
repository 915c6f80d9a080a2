package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FolkodeGroup/mediapp/pkg/api/client"
	"github.com/FolkodeGroup/mediapp/pkg/session"
)

func newLogoutCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			a.store.Logout()
			a.println(successStyle.Render("logged out"))
			return nil
		},
	}
}

func newStatusCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			snap := a.store.Snapshot()
			if !snap.Authenticated {
				a.println(mutedStyle.Render("not signed in"))
			} else {
				a.println(successStyle.Render("signed in as " + snap.User.DisplayName()))
				if role, ok := snap.User["role"].(string); ok && role != "" {
					a.printf("role:    %s\n", role)
				}
			}
			a.printf("api:     %s\n", a.api.BaseURL())
			a.printf("storage: %s\n", a.storageLocation())
			return nil
		},
	}
}

func newOpenCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <route>",
		Short: "Navigate to a route (/login, /dashboard, /patients)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			out, err := a.gate.Navigate(args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, out)
		},
	}
}

func newPatientsCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patients [id]",
		Short: "List patients or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			var id int64
			if len(args) == 1 {
				v, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || v <= 0 {
					return fmt.Errorf("invalid patient id %q", args[0])
				}
				id = v
			}
			out, err := a.gate.Navigate(session.RoutePatients)
			if err != nil {
				return err
			}
			if id == 0 || out.Route != session.RoutePatients || out.Decision == session.DecisionPlaceholder {
				return a.render(cmd, out)
			}
			a.println(routeStyle.Render("→ " + out.Route + "/" + strconv.FormatInt(id, 10)))
			return a.renderPatient(cmd, id)
		},
	}
}

func newRefreshCommand(current func() *app) *cobra.Command {
	var refreshToken string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if strings.TrimSpace(refreshToken) == "" {
				return errors.New("--refresh-token is required")
			}
			ctx, cancel := requestContext(cmd, a)
			defer cancel()
			access, err := a.api.Refresh(ctx, refreshToken)
			if err != nil {
				return err
			}
			a.println(access)
			return nil
		},
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token issued at login")
	return cmd
}

// render prints the page reached by the gate.
func (a *app) render(cmd *cobra.Command, out session.Outcome) error {
	a.println(routeStyle.Render("→ " + out.Route))
	if out.Decision == session.DecisionPlaceholder {
		a.println(mutedStyle.Render("loading..."))
		return nil
	}
	switch out.Route {
	case session.RouteLogin:
		a.println(mutedStyle.Render("sign in with: mediapp login"))
	case session.RouteDashboard:
		snap := a.store.Snapshot()
		a.println(headerStyle.Render("Dashboard"))
		a.printf("Welcome, %s\n", snap.User.DisplayName())
		a.println(mutedStyle.Render("patients: mediapp open /patients"))
	case session.RoutePatients:
		return a.renderPatients(cmd)
	}
	return nil
}

// reportAPIError prints failures the user can act on and drops the session
// when the API rejects the token.
func (a *app) reportAPIError(err error) error {
	var apiErr client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			a.store.Logout()
			a.println(errorStyle.Render("session expired: sign in again with mediapp login"))
			return ErrReported
		case http.StatusNotFound:
			msg := apiErr.Message
			if msg == "" {
				msg = "not found"
			}
			a.println(errorStyle.Render(msg))
			return ErrReported
		}
	}
	if client.IsTransport(err) {
		_, msg := session.Describe(err)
		a.println(errorStyle.Render(msg))
		return ErrReported
	}
	return err
}

func (a *app) renderPatient(cmd *cobra.Command, id int64) error {
	ctx, cancel := requestContext(cmd, a)
	defer cancel()
	p, err := a.api.GetPatient(ctx, a.store.Token(), id)
	if err != nil {
		return a.reportAPIError(err)
	}
	a.println(headerStyle.Render(p.FullName()))
	a.printf("id:      %d\n", p.ID)
	a.printf("dni:     %s\n", p.DNI)
	a.printf("record:  %s\n", p.MedicalRecordID)
	a.printf("sex:     %s\n", p.Gender)
	if p.BirthDate != "" {
		a.printf("born:    %s\n", p.BirthDate)
	}
	if p.Email != "" {
		a.printf("email:   %s\n", p.Email)
	}
	return nil
}

func (a *app) renderPatients(cmd *cobra.Command) error {
	ctx, cancel := requestContext(cmd, a)
	defer cancel()
	patients, err := a.api.ListPatients(ctx, a.store.Token())
	if err != nil {
		return a.reportAPIError(err)
	}

	a.println(headerStyle.Render(fmt.Sprintf("Patients (%d)", len(patients))))
	if len(patients) == 0 {
		a.println(mutedStyle.Render("no patients"))
		return nil
	}
	a.printf("%-6s %-28s %-12s %-10s %-3s %s\n", "ID", "NAME", "DNI", "RECORD", "SEX", "BIRTH DATE")
	for _, p := range patients {
		a.printf("%-6d %-28s %-12s %-10s %-3s %s\n", p.ID, p.FullName(), p.DNI, p.MedicalRecordID, p.Gender, p.BirthDate)
	}
	return nil
}
