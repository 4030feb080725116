package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"

	"linvo/catalog"
	"linvo/config"
	"linvo/internal/auth"
	"linvo/internal/server"
	"linvo/internal/services"
	"linvo/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// errUsage reports a usage problem whose message was already printed.
var errUsage = errors.New("usage")

// run executes one subcommand and returns the process exit code. Commands
// return errors instead of exiting so their deferred cleanup always runs.
func run(argv []string) int {
	if len(argv) < 1 {
		printUsage()
		return 1
	}

	commands := map[string]func([]string) error{
		"serve":      cmdServe,
		"kids":       cmdKids,
		"add-kid":    cmdAddKid,
		"select-kid": cmdSelectKid,
		"import":     cmdImport,
		"refresh":    cmdRefresh,
		"play":       cmdPlay,
		"settings":   cmdSettings,
		"videos":     cmdVideos,
		"hash-pin":   cmdHashPIN,
	}

	command := argv[0]
	switch command {
	case "help", "-h", "--help":
		printUsage()
		return 0
	}
	cmd, ok := commands[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		return 1
	}

	err := cmd(argv[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `linvo - curated video browsing for kids

Usage:
  linvo serve [flags]                   Serve the HTTP API
  linvo kids                            List kid profiles
  linvo add-kid <name>                  Add a kid profile
  linvo select-kid <kid-id>             Make a kid the current one
  linvo import [flags] <channel>        Approve a channel and import its videos
  linvo refresh <channel-record-id>     Re-import videos of an approved channel
  linvo play [flags] <video-id>         Record a playback
  linvo settings [flags]                Show or change viewing settings
  linvo videos [flags]                  List a kid's videos
  linvo hash-pin <pin>                  Print a bcrypt hash for LINVO_PARENT_PIN_HASH
  linvo help                            Show this help message

Examples:
  linvo add-kid Sam
  linvo import --kid kid-1 https://www.youtube.com/@kidsclub
  linvo import UCuAXFkgsw1L7xaCfnd5JJOw                     # current kid
  linvo settings --limit 60 --start 20:00 --end 07:00
  linvo videos --recent

Configuration is read from LINVO_* environment variables, .env and linvo.json.
For help on specific command: linvo <command> -h
`)
}

// app wires the configured stack for one command.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	store    *storage.Store
	session  *services.Session
	kids     *services.KidService
	settings *services.SettingsService
	playback *services.PlaybackService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := log.NewFilter(
		log.With(log.NewStdLogger(os.Stderr), "ts", log.DefaultTimestamp, "caller", log.DefaultCaller),
		log.FilterLevel(cfg.Level()),
	)

	backend, err := cfg.OpenBackend()
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.StoreBackend, err)
	}
	store := storage.NewStore(backend, logger)
	session := services.NewSession(ctx, store, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		session:  session,
		kids:     services.NewKidService(session),
		settings: services.NewSettingsService(session),
		playback: services.NewPlaybackService(session),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing store: %v\n", err)
	}
}

func (a *app) imports(ctx context.Context) (*services.ImportService, error) {
	if a.cfg.YouTubeAPIKey == "" {
		return nil, errors.New("LINVO_YT_API_KEY is not set")
	}
	client, err := catalog.NewAPIClient(ctx, a.cfg.CatalogConfig(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating catalog client: %w", err)
	}
	return services.NewImportService(a.session, client, a.cfg.RecentLimit, a.logger), nil
}

// kidOrCurrent returns id, or the current kid when id is empty.
func (a *app) kidOrCurrent(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	kid := a.kids.CurrentKid()
	if kid == nil {
		return "", errors.New("no kid profiles; add one with 'linvo add-kid <name>'")
	}
	return kid.ID, nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", "", "Listen address (default from LINVO_LISTEN_ADDR)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	verifier, err := a.cfg.Verifier()
	if err != nil {
		return fmt.Errorf("configuring admin PIN: %w", err)
	}
	if verifier == nil {
		fmt.Fprintln(os.Stderr, "Warning: no parent PIN configured, admin routes are locked")
	}
	secret, err := a.cfg.TokenSecretBytes()
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(secret, a.cfg.TokenTTL)
	if err != nil {
		return err
	}
	imports, err := a.imports(ctx)
	if err != nil {
		return err
	}

	listen := a.cfg.ListenAddr
	if *addr != "" {
		listen = *addr
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Deps{
		Session:  a.session,
		Kids:     a.kids,
		Settings: a.settings,
		Imports:  imports,
		Playback: a.playback,
		Gate:     auth.NewGate(verifier, issuer),
	}, a.logger)

	return srv.Run(ctx, listen)
}

func cmdKids(args []string) error {
	fs := flag.NewFlagSet("kids", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tKID ID\tNAME\tCHANNELS\tVIDEOS")
	for _, s := range a.session.KidSummaries() {
		marker := ""
		if s.Current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", marker, s.Kid.ID, s.Kid.Name, s.ChannelCount, s.VideoCount)
	}
	return w.Flush()
}

func cmdAddKid(args []string) error {
	args, err := requireArgs("add-kid", args, "name")
	if err != nil {
		return err
	}
	name := strings.Join(args, " ")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	kid, err := a.kids.AddKid(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s (%s)\n", kid.Name, kid.ID)
	return nil
}

func cmdSelectKid(args []string) error {
	args, err := requireArgs("select-kid", args, "kid-id")
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	kid, err := a.kids.SelectKid(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Current kid: %s (%s)\n", kid.Name, kid.ID)
	return nil
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	kidID := fs.String("kid", "", "Kid to approve the channel for (default: current kid)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: linvo import [flags] <channel-id|@handle|channel-url>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing channel\n")
		fs.Usage()
		return errUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	kid, err := a.kidOrCurrent(*kidID)
	if err != nil {
		return err
	}
	imports, err := a.imports(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Importing %s for %s...\n", argv[0], kid)
	channel, err := imports.ImportChannel(ctx, argv[0], kid)
	if err != nil {
		if channel != nil {
			fmt.Fprintf(os.Stderr, "Approved %s (%s) but importing videos failed\n", channel.Title, channel.ID)
			fmt.Fprintf(os.Stderr, "Retry with: linvo refresh %s\n", channel.ID)
		}
		return errors.New(describe(err))
	}
	fmt.Printf("Approved %s (%s)\n", channel.Title, channel.ID)
	return nil
}

func cmdRefresh(args []string) error {
	args, err := requireArgs("refresh", args, "channel-record-id")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	imports, err := a.imports(ctx)
	if err != nil {
		return err
	}
	added, err := imports.RefreshChannel(ctx, args[0])
	if err != nil {
		return errors.New(describe(err))
	}
	fmt.Printf("Imported %d new videos\n", added)
	return nil
}

func cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	kidID := fs.String("kid", "", "Kid who played the video (default: current kid)")
	title := fs.String("title", "", "Video title")
	channelTitle := fs.String("channel", "", "Channel title")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	argv := fs.Args()
	if len(argv) == 0 {
		return errors.New("missing video-id")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	kid, err := a.kidOrCurrent(*kidID)
	if err != nil {
		return err
	}
	if err := a.playback.RecordPlayback(ctx, argv[0], *title, *channelTitle, kid); err != nil {
		return err
	}
	fmt.Printf("https://www.youtube-nocookie.com/embed/%s\n", argv[0])
	return nil
}

func cmdSettings(args []string) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	limit := fs.String("limit", "", "Daily limit in minutes (empty or invalid clears it)")
	start := fs.String("start", "", "Downtime start, HH:MM (empty clears it)")
	end := fs.String("end", "", "Downtime end, HH:MM (empty clears it)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var update services.SettingsUpdate
	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "limit":
			update.DailyLimitMinutes = limit
		case "start":
			update.DowntimeStart = start
		case "end":
			update.DowntimeEnd = end
		}
	})

	settings := a.settings.Settings()
	if changed {
		if settings, err = a.settings.UpdateSettings(ctx, update); err != nil {
			return err
		}
	}

	limitText := "none"
	if settings.DailyLimitMinutes != nil {
		limitText = fmt.Sprintf("%d minutes", *settings.DailyLimitMinutes)
	}
	fmt.Printf("Daily limit:  %s\n", limitText)
	fmt.Printf("Downtime:     %s - %s\n", orDash(settings.DowntimeStart), orDash(settings.DowntimeEnd))
	fmt.Printf("In downtime:  %v\n", a.settings.InDowntime())
	return nil
}

func cmdVideos(args []string) error {
	fs := flag.NewFlagSet("videos", flag.ContinueOnError)
	kidID := fs.String("kid", "", "Kid whose videos to list (default: current kid)")
	recent := fs.Bool("recent", false, "Only the recently watched row")
	channels := fs.Bool("channels", false, "List approved channels instead of videos")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()
	kid, err := a.kidOrCurrent(*kidID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if *channels {
		fmt.Fprintln(w, "RECORD ID\tCHANNEL ID\tTITLE")
		for _, c := range a.session.ChannelsForKid(kid) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.ChannelID, truncate(c.Title, 50))
		}
		return w.Flush()
	}

	videos := a.session.VideosForKid(kid)
	if *recent {
		videos = a.session.RecentlyWatched(kid, services.DefaultRecentlyWatched)
	}
	if len(videos) == 0 {
		fmt.Println("No videos found.")
		return nil
	}

	fmt.Fprintln(w, "VIDEO ID\tTITLE\tCHANNEL\tDURATION")
	for _, v := range videos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, truncate(v.Title, 50), truncate(v.ChannelTitle, 30), v.Duration)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d videos\n", len(videos))
	return nil
}

func cmdHashPIN(args []string) error {
	args, err := requireArgs("hash-pin", args, "pin")
	if err != nil {
		return err
	}
	hash, err := auth.HashPIN(args[0])
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// describe adds a hint for errors the user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return fmt.Sprintf("%v (use a channel id, @handle, or a /channel/ or /@handle URL)", err)
	case errors.Is(err, catalog.ErrNotFound):
		return fmt.Sprintf("%v (check the channel id or handle)", err)
	case errors.Is(err, catalog.ErrQuotaExhausted):
		return fmt.Sprintf("%v (daily API quota used up, try again tomorrow)", err)
	case errors.Is(err, catalog.ErrTransport):
		return fmt.Sprintf("%v (check your connection and try again)", err)
	}
	return err.Error()
}

// parseFlags parses args, mapping flag errors (already printed by fs) to
// errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func requireArgs(cmd string, args []string, name string) ([]string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintf(os.Stderr, "Error: missing %s\nUsage: linvo %s <%s>\n", name, cmd, name)
		return nil, errUsage
	}
	return args, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
