package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/FolkodeGroup/mediapp/pkg/session"
)

func newLoginCommand(current func() *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			if a.store.IsAuthenticated() {
				out, err := a.gate.Navigate(session.RouteLogin)
				if err != nil {
					return err
				}
				a.println(mutedStyle.Render("already signed in as " + a.store.Snapshot().User.DisplayName()))
				return a.render(cmd, out)
			}

			var err error
			if username == "" {
				if username, err = a.prompt.line("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt.secret("Password: "); err != nil {
					return err
				}
			}
			return a.runLogin(cmd, session.Credentials{Username: username, Password: password})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (supply to avoid the prompt)")
	return cmd
}

func (a *app) runLogin(cmd *cobra.Command, creds session.Credentials) error {
	flow := session.NewFlow(a.store, session.FlowOptions{
		NoticeTTL:     a.opts.NoticeTTL,
		RedirectDelay: a.opts.RedirectDelay,
	})
	defer flow.Close()

	ctx, cancel := requestContext(cmd, a)
	res := flow.Submit(ctx, creds)
	cancel()

	switch res.Kind {
	case session.ResultInvalid:
		keys := make([]string, 0, len(res.Fields))
		for k := range res.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a.println(fieldStyle.Render(fmt.Sprintf("%s: %s", k, res.Fields[k])))
		}
		return ErrReported
	case session.ResultBusy:
		return res.Err
	case session.ResultFailure:
		a.log.Debug("login failed", "reason", res.Reason.String(), "error", res.Err)
		a.showNotice(flow, res.Message)
		return ErrReported
	}

	a.showNotice(flow, res.Message)
	route, err := waitRedirect(cmd.Context(), flow, a.opts.RedirectDelay)
	if err != nil {
		return err
	}
	out, err := a.gate.Navigate(route)
	if err != nil {
		return err
	}
	return a.render(cmd, out)
}

// showNotice prints the flow's visible notice once and dismisses it.
func (a *app) showNotice(flow *session.Flow, fallback string) {
	n, ok := flow.Notice()
	if !ok {
		a.println(mutedStyle.Render(fallback))
		return
	}
	flow.DismissNotice()
	if n.Kind == session.NoticeError {
		a.println(errorStyle.Render(n.Message))
		return
	}
	a.println(successStyle.Render(n.Message))
}

func waitRedirect(ctx context.Context, flow *session.Flow, delay time.Duration) (string, error) {
	if delay <= 0 {
		delay = session.DefaultRedirectDelay
	}
	select {
	case route := <-flow.Redirects():
		return route, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(delay + 5*time.Second):
		return "", fmt.Errorf("redirect did not happen")
	}
}
