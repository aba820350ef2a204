// Command ecomission is the command-line front end of the mission client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nhle/ecomission/internal/api"
	"github.com/nhle/ecomission/internal/credential"
	"github.com/nhle/ecomission/internal/logging"
	"github.com/nhle/ecomission/internal/model"
	"github.com/nhle/ecomission/internal/session"
	"github.com/nhle/ecomission/internal/store"
)

// env holds everything a command needs.
type env struct {
	cfg     *model.AppConfig
	log     zerolog.Logger
	db      *store.SQLiteStore
	client  *api.Client
	sess    *session.Session
	metrics *prometheus.Registry
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":        {"login [-email E] [-password P]", runLogin},
	"kakao-url":    {"kakao-url", runKakaoURL},
	"kakao":        {"kakao -code C", runKakao},
	"logout":       {"logout", runLogout},
	"day":          {"day [-date D] [-force]", runDay},
	"week":         {"week [-date D] [-i]", runWeek},
	"add":          {"add -mission ID -labels L1,L2 [-date D] [-weekly]", runAdd},
	"delete":       {"delete -index N [-date D]", runDelete},
	"toggle":       {"toggle -index N [-date D]", runToggle},
	"groups":       {"groups [-force]", runGroups},
	"recommended":  {"recommended", runRecommended},
	"join":         {"join -group ID", runJoin},
	"leave":        {"leave -group ID", runLeave},
	"group-create": {"group-create -name N [-color C]", runGroupCreate},
	"group-delete": {"group-delete -group ID", runGroupDelete},
	"check":        {"check -group ID [-date D] [-undo]", runCheck},
	"invite":       {"invite -group ID -friends 1,2", runInvite},
	"invites":      {"invites", runInvites},
	"accept":       {"accept -invite ID", runAccept},
	"decline":      {"decline -invite ID", runDecline},
	"friends":      {"friends [-discover N]", runFriends},
	"ranking":      {"ranking", runRanking},
	"profile":      {"profile [-name N] [-bio B]", runProfile},
	"watch":        {"watch", runWatch},
	"config":       {"config [-write]", runConfig},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ecomission:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.sess.Restore(ctx); err != nil {
		e.log.Warn().Err(err).Msg("device snapshot is unreadable")
	}

	err = cmd.run(ctx, e, args[1:])
	printNotices(e.sess)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: ecomission <command> [flags]")
	for _, name := range names {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
}

func setup() (*env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := model.LoadConfig(configPath())
	if err != nil {
		return nil, err
	}

	logging.SetLevel(cfg.Log.Level)
	log := logging.New(os.Stderr, cfg.Log.Pretty)

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	ring, err := credential.Open(os.Getenv("ECOMISSION_KEYRING_DIR"))
	if err != nil {
		db.Close()
		return nil, err
	}
	tokens := credential.NewKeyring(ring)

	client := api.NewClient(api.Options{
		BaseURL:            cfg.API.BaseURL,
		Timeout:            cfg.API.Timeout,
		RequestsPerSecond:  cfg.API.RequestsPerSecond,
		Burst:              cfg.API.Burst,
		KakaoClientID:      cfg.Auth.KakaoClientID,
		KakaoRedirectURI:   cfg.Auth.KakaoRedirectURI,
		SocialLoginTimeout: cfg.Auth.SocialLoginTimeout,
		Logger:             log,
	}, tokens)

	reg := prometheus.NewRegistry()
	sess, err := session.New(client, store.NewLocal(db, log), tokens, session.Options{
		DayTTL:           cfg.Cache.DayTTL,
		GroupTTL:         cfg.Cache.GroupTTL,
		WeekSummaryTTL:   cfg.Cache.WeekSummaryTTL,
		RolloverInterval: cfg.Sync.RolloverInterval,
		Logger:           log,
		Registerer:       reg,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		client:  client,
		sess:    sess,
		metrics: reg,
	}, nil
}

// configPath honors ECOMISSION_CONFIG before the default location.
func configPath() string {
	if path := os.Getenv("ECOMISSION_CONFIG"); path != "" {
		return path
	}
	return model.DefaultConfigPath()
}

func (e *env) close() {
	e.sess.Close()
	if err := e.db.Close(); err != nil {
		e.log.Error().Err(err).Msg("closing device store")
	}
}
