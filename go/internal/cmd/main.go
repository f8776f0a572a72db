package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/scoring"
	"github.com/geodueler/geodueler/go/internal/session"
)

func main() {
	solo := flag.Bool("solo", false, "play a local session without a room")
	create := flag.Bool("create", false, "create a multiplayer room and host it")
	join := flag.String("join", "", "join a multiplayer room by code")
	name := flag.String("name", "", "display name")
	rounds := flag.Int("rounds", 0, "rounds per session (host only, overrides config)")
	timeLimit := flag.Int("time-limit", 0, "seconds per round (host only, overrides config)")
	configPath := flag.String("config", "config.yaml", "path to game defaults file")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Setup logging; stdout belongs to the game rendering
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("using built-in game defaults")
	}
	sessionCfg := cfg.sessionConfig()

	mode := 0
	for _, on := range []bool{*solo, *create, *join != ""} {
		if on {
			mode++
		}
	}
	if mode != 1 {
		fmt.Fprintln(os.Stderr, "pick exactly one of -solo, -create or -join CODE")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := &renderer{out: os.Stdout}
	sessionCfg.OnChange = ui.render

	var coord *session.Coordinator
	var be *backends
	if *solo {
		coord = session.New(nil, nil, sessionCfg)
	} else {
		be, err = connectBackends(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("multiplayer backends unavailable")
		}
		defer be.close()
		coord = session.New(be.repo, session.ChannelFromClient(be.rt), sessionCfg)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = coord.Run(ctx)
	}()

	switch {
	case *solo:
		err = coord.StartSolo(ctx, *name)
	case *create:
		err = coord.CreateRoom(ctx, *name, models.RoomSettings{MaxRounds: *rounds, TimeLimitSec: *timeLimit})
	default:
		err = coord.JoinRoom(ctx, *name, *join)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("could not enter session")
	}

	repl(ctx, coord, be)
	stop()
	<-done
}

// repl drives the session from stdin until the player quits or the
// context ends.
func repl(ctx context.Context, coord *session.Coordinator, be *backends) {
	fmt.Println(`commands: start | guess <lat> <lng> | next | status | top | quit`)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "start":
			err = coord.StartSession(ctx)
		case "guess":
			if len(fields) != 3 {
				err = fmt.Errorf("usage: guess <lat> <lng>")
				break
			}
			var lat, lng float64
			if lat, err = strconv.ParseFloat(fields[1], 64); err != nil {
				break
			}
			if lng, err = strconv.ParseFloat(fields[2], 64); err != nil {
				break
			}
			err = coord.SubmitGuess(ctx, lat, lng)
		case "next":
			err = coord.AdvanceRound(ctx)
		case "status":
			if s, serr := coord.Snapshot(ctx); serr == nil {
				(&renderer{out: os.Stdout}).render(s)
			}
		case "top":
			err = printLeaderboard(ctx, be)
		case "quit", "exit":
			_ = coord.Leave(ctx)
			return
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}
		if err != nil {
			fmt.Printf("! %v\n", err)
		}
	}
}

func printLeaderboard(ctx context.Context, be *backends) error {
	if be == nil {
		return fmt.Errorf("leaderboard needs a database connection")
	}
	entries, err := be.repo.ListTopLeaderboardEntries(ctx, 10)
	if err != nil {
		return err
	}
	fmt.Println("all-time top scores:")
	for i, e := range entries {
		fmt.Printf("%2d. %-20s %5d (%d rounds)\n", i+1, e.PlayerName, e.Score, e.Rounds)
	}
	return nil
}

// renderer prints one line per state change, enough to follow a session
// from a terminal.
type renderer struct {
	out  *os.File
	last session.State
}

func (r *renderer) render(s session.Snapshot) {
	switch s.State {
	case session.StateWaiting:
		if s.Room != nil {
			fmt.Fprintf(r.out, "lobby %s: %d player(s) in, waiting for host to start\n", s.Room.Code, len(s.Players))
		}
	case session.StateRoundActive:
		if r.last != s.State {
			fmt.Fprintf(r.out, "round %d/%d started, %ds on the clock\n", s.RoundIndex+1, s.MaxRounds, s.TimeLeft)
		} else if s.TimeLeft > 0 && s.TimeLeft%15 == 0 && !s.GuessConfirmed {
			fmt.Fprintf(r.out, "  %ds left\n", s.TimeLeft)
		}
		if s.GuessConfirmed && s.GuessCount > 0 {
			fmt.Fprintf(r.out, "  %d guess(es) in, waiting for the round to close\n", s.GuessCount)
		}
	case session.StateRoundResults:
		if r.last == s.State {
			break
		}
		res := s.LastResults
		fmt.Fprintf(r.out, "round %d results (%s, %s):\n", res.RoundIndex+1, res.TargetCity, res.TargetCountry)
		for _, g := range res.Guesses {
			fmt.Fprintf(r.out, "  %-20s %5d  %s\n", g.PlayerName, g.Score, scoring.FormatDistance(g.DistanceKm))
		}
	case session.StateFinished:
		if r.last == s.State {
			break
		}
		fmt.Fprintln(r.out, "final standings:")
		for i, p := range s.Standings {
			fmt.Fprintf(r.out, "  %d. %-20s %5d\n", i+1, p.Name, p.Score)
		}
	}
	if s.LastError != "" {
		fmt.Fprintf(r.out, "! %s\n", s.LastError)
	}
	r.last = s.State
}
