package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/notekeeper/internal/config"
	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/docstore/memory"
	"github.com/mmynk/notekeeper/internal/docstore/mongostore"
	"github.com/mmynk/notekeeper/internal/docstore/remote"
	"github.com/mmynk/notekeeper/internal/docstore/sqlite"
	"github.com/mmynk/notekeeper/internal/notes"
	"github.com/mmynk/notekeeper/internal/session"
	"github.com/mmynk/notekeeper/pkg/logging"
)

var errNotSignedIn = errors.New("not signed in; run `notes login` first")

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	driver     string
	verbose    bool
}

// app is what every command works with once configuration is loaded.
type app struct {
	cfg      *config.Config
	repo     *notes.Repository
	identity session.Provider

	// files is set for the remote driver, where identity comes from the session file.
	files *session.FileProvider
	close func() error
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Keep short text notes in a notekeeper document store",
		Long: `notes lists, creates, edits and deletes your notes.

By default it talks to a docstored server; sign in with "notes login".
With --driver sqlite, mongo or memory it uses that store directly and acts
as the user given by client.user_id.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: notekeeper.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "note store: remote, sqlite, mongo or memory (overrides client.driver)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newListCmd(opts),
		newAddCmd(opts),
		newShowCmd(opts),
		newEditCmd(opts),
		newRmCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// loadConfig reads configuration and sets up logging.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	// Only warnings and errors unless asked for more.
	level := max(logging.ParseLevel(cfg.LogLevel), slog.LevelWarn)
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(logging.New(os.Stderr, level, false))

	if o.driver != "" {
		cfg.Client.Driver = o.driver
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// open builds the note repository and identity for the configured driver.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, close: func() error { return nil }}
	var store docstore.Store

	switch cfg.Client.Driver {
	case config.DriverRemote:
		files, err := session.NewFileProvider(cfg.Client.SessionPath, slog.Default())
		if err != nil {
			return nil, err
		}
		a.files = files
		a.identity = files
		store = remote.New(cfg.Client.Endpoint,
			remote.WithTokenSource(files),
			remote.WithTimeout(cfg.Client.Timeout),
		)

	case config.DriverSQLite:
		s, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, a.close = s, s.Close
		a.identity = session.NewStatic(session.User{ID: cfg.Client.UserID})

	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, mongostore.Options{
			URI:           cfg.Store.MongoURI,
			Timeout:       cfg.Store.MongoTimeout,
			UsersDatabase: cfg.Store.UsersDatabase,
		})
		if err != nil {
			return nil, err
		}
		store, a.close = s, s.Close
		a.identity = session.NewStatic(session.User{ID: cfg.Client.UserID})

	case config.DriverMemory:
		store = memory.New()
		a.identity = session.NewStatic(session.User{ID: cfg.Client.UserID})

	default:
		return nil, fmt.Errorf("unknown client driver %q", cfg.Client.Driver)
	}

	a.repo = notes.NewRepository(store, cfg.Client.DatabaseID, cfg.Client.CollectionID, slog.Default())
	return a, nil
}

// user returns the signed-in identity or errNotSignedIn.
func (a *app) user() (session.User, error) {
	u, ok := a.identity.Current()
	if !ok {
		return session.User{}, errNotSignedIn
	}
	return u, nil
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
