// Package cli implements the mediapp command line client.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// newRootCommand builds the mediapp command tree. The returned func releases
// the session storage opened by whichever subcommand ran.
func newRootCommand(opts Options) (*cobra.Command, func()) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	var (
		flags globalFlags
		a     *app
	)
	root := &cobra.Command{
		Use:   "mediapp",
		Short: "Sign in to MediApp and browse patients from the terminal",
		Long: `mediapp is the command line client of the MediApp clinic backend.

It keeps a session (user and token) in local storage so later commands run
authenticated until you log out.

Quick Start:
  mediapp login                 # sign in (prompts for missing fields)
  mediapp open /dashboard       # navigate like the web client would
  mediapp patients              # list patients
  mediapp patients 42           # show one patient
  mediapp register              # create an account
  mediapp config set storage sqlite
  mediapp logout                # forget the session`,
		Version:       opts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(opts, flags)
			return err
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to the YAML config file (default <config dir>/mediapp/config.yaml)")
	pf.StringVar(&flags.apiBaseURL, "api", "", "API base URL (overrides the config file)")
	pf.StringVar(&flags.storage, "storage", "", "Session storage backend: file, sqlite or memory")
	pf.StringVar(&flags.storagePath, "storage-path", "", "Session file or database location")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Timeout for API requests (0 waits until interrupted)")

	current := func() *app { return a }
	root.AddCommand(
		newLoginCommand(current),
		newLogoutCommand(current),
		newStatusCommand(current),
		newOpenCommand(current),
		newPatientsCommand(current),
		newRefreshCommand(current),
		newRegisterCommand(current),
		newConfigCommand(current),
	)
	cleanup := func() {
		if a != nil {
			a.close()
		}
	}
	return root, cleanup
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, opts Options, args []string) error {
	root, cleanup := newRootCommand(opts)
	defer cleanup()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func requestContext(cmd *cobra.Command, a *app) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), a.timeout)
}

