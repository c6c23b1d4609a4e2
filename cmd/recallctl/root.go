package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/listenupapp/recall-server/internal/config"
	"github.com/listenupapp/recall-server/internal/di/providers"
	"github.com/listenupapp/recall-server/internal/logger"
	"github.com/listenupapp/recall-server/internal/service"
	"github.com/listenupapp/recall-server/internal/store"
)

// errSilent makes main exit 1 without printing; the command has already
// reported the failure.
var errSilent = errors.New("silent failure")

// annotationStore marks commands that need an open store.
const annotationStore = "recallctl/store"

// storeCommand marks cmd as needing the store.
func storeCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationStore] = "true"
	return cmd
}

// app holds the state shared by every subcommand.
type app struct {
	driver   string
	dataPath string
	envFile  string
	jsonOut  bool

	store     store.Store
	tags      *service.TagService
	questions *service.QuestionService
}

// run executes recallctl with args and always closes the store, also when
// a subcommand fails.
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "recallctl",
		Short:         "Inspect and edit a recall database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationStore] != "true" {
				return nil
			}
			return a.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.driver, "db-driver", "", "Storage driver (sqlite, badger); default from DB_DRIVER")
	flags.StringVar(&a.dataPath, "data-path", "", "Directory for database files; default from DATA_PATH")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to .env file")
	flags.BoolVar(&a.jsonOut, "json", false, "Print JSON instead of text")

	root.AddCommand(
		newHierarchyCmd(a),
		newValidateCmd(a),
		newNextCmd(a),
		newTagCmd(a),
	)
	return root
}

// open resolves configuration the same way the server does, with the
// global flags taking precedence, and opens the store.
func (a *app) open(cmd *cobra.Command) error {
	args := []string{"--env-file", a.envFile}
	if a.driver != "" {
		args = append(args, "--db-driver", a.driver)
	}
	if a.dataPath != "" {
		args = append(args, "--data-path", a.dataPath)
	}

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Writer:      cmd.ErrOrStderr(),
		Level:       slog.LevelWarn,
		Environment: cfg.App.Environment,
	})

	st, err := providers.OpenStore(cfg.Database, log.Logger)
	if err != nil {
		return err
	}

	a.store = st
	a.tags = service.NewTagService(st, log.Component("tags"))
	a.questions = service.NewQuestionService(st, a.tags, log.Component("questions"))
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// addUserFlag registers the required --user flag.
func addUserFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "user", "u", "", "User whose data to use")
	_ = cmd.MarkFlagRequired("user")
}
