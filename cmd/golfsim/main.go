package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/playmatatu/minigolf/internal/course"
	"github.com/playmatatu/minigolf/internal/game"
	"github.com/playmatatu/minigolf/internal/logging"
	"github.com/playmatatu/minigolf/internal/sim"
)

// Shot is a queued hit.
type Shot struct {
	Aim   float64 // radians
	Power float64
}

// parseShot reads AIM:POWER with the aim in degrees.
func parseShot(text string) (Shot, error) {
	aim, power, ok := strings.Cut(text, ":")
	if !ok {
		return Shot{}, fmt.Errorf("shot %q: want AIM:POWER", text)
	}
	deg, err := strconv.ParseFloat(strings.TrimSpace(aim), 64)
	if err != nil {
		return Shot{}, fmt.Errorf("shot %q: bad aim: %w", text, err)
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(power), 64)
	if err != nil {
		return Shot{}, fmt.Errorf("shot %q: bad power: %w", text, err)
	}
	return Shot{Aim: deg * math.Pi / 180, Power: p}, nil
}

func parseShots(texts []string) ([]Shot, error) {
	shots := make([]Shot, 0, len(texts))
	for _, t := range texts {
		s, err := parseShot(t)
		if err != nil {
			return nil, err
		}
		shots = append(shots, s)
	}
	return shots, nil
}

var CLI struct {
	Debug  bool   `help:"Whether to enable debug logging."`
	Levels string `help:"Level catalog YAML; the built-in course when empty." type:"existingfile"`

	Play struct {
		FPS       float64  `help:"Frames per simulated second." default:"60"`
		Seconds   float64  `help:"Simulated wall-clock seconds to run." default:"20"`
		FixedDT   float64  `name:"fixed-dt" help:"Physics step in seconds." default:"0.05"`
		TimeScale float64  `name:"time-scale" help:"Playback speed; negative rewinds." default:"1"`
		Seed      uint64   `help:"Seed for decor spin axes." default:"1"`
		Hits      []string `name:"hit" help:"Shot as AIM:POWER (degrees). Taken in order whenever the ball is at rest." sep:"none"`
		JSON      bool     `name:"json" help:"Print the final snapshot as JSON."`
	} `cmd:"" default:"withargs" help:"Simulate a game headlessly."`

	List struct{} `cmd:"" name:"levels" help:"List the levels of the catalog."`
}

func main() {
	logging.Setup("info", true)

	ctx := kong.Parse(&CLI,
		kong.Name("golfsim"),
		kong.Description("headless mini-golf simulator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	catalog, err := loadCatalog(CLI.Levels)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}

	switch ctx.Command() {
	case "levels":
		listLevels(catalog)
	default:
		shots, err := parseShots(CLI.Play.Hits)
		ctx.FatalIfErrorf(err)

		snap, err := play(catalog, playOptions{
			FPS:       CLI.Play.FPS,
			Seconds:   CLI.Play.Seconds,
			FixedDT:   CLI.Play.FixedDT,
			TimeScale: CLI.Play.TimeScale,
			Seed:      CLI.Play.Seed,
			Hits:      shots,
		})
		ctx.FatalIfErrorf(err)

		if CLI.Play.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			ctx.FatalIfErrorf(enc.Encode(snap))
			return
		}
		fmt.Printf("level %d (%s) %s: %d strokes on this hole, %d total, %d holes completed\n",
			snap.Level, snap.LevelName, snap.Status, snap.Strokes, snap.TotalStrokes, snap.HolesCompleted)
	}
}

func loadCatalog(path string) (*course.Catalog, error) {
	radius := game.DefaultTuning().BallRadius
	if path == "" {
		return course.DefaultCatalog(radius)
	}
	return course.LoadCatalog(path, radius)
}

func listLevels(c *course.Catalog) {
	for i := 1; i <= c.Len(); i++ {
		l, err := c.Build(i, 0)
		if err != nil {
			log.Error().Err(err).Int("level", i).Msg("level does not build")
			continue
		}
		fmt.Println(l)
	}
}

type playOptions struct {
	FPS       float64
	Seconds   float64
	FixedDT   float64
	TimeScale float64
	Seed      uint64
	Hits      []Shot
}

// play runs the fixed-step loop at opts.FPS, taking the next shot whenever the
// ball comes to rest.
func play(c *course.Catalog, opts playOptions) (*game.Snapshot, error) {
	if !(opts.FPS > 0) {
		return nil, fmt.Errorf("fps must be positive, got %v", opts.FPS)
	}

	g, err := game.NewGame(c, game.DefaultTuning(), opts.Seed)
	if err != nil {
		return nil, err
	}
	clock, err := sim.NewClock(opts.FixedDT, opts.TimeScale)
	if err != nil {
		return nil, err
	}

	frames := int(math.Ceil(opts.Seconds * opts.FPS))
	frameTime := 1 / opts.FPS
	next := 0

	for i := 0; i < frames; i++ {
		if g.Stopped() && next < len(opts.Hits) {
			shot := opts.Hits[next]
			if err := g.Hit(shot.Aim, shot.Power); err != nil {
				return nil, fmt.Errorf("shot %d: %w", next+1, err)
			}
			next++
		}

		if _, err := clock.Step(frameTime, g); err != nil {
			return nil, err
		}
		for _, e := range g.DrainEvents() {
			log.Info().
				Str("type", string(e.Type)).
				Int("level", e.Level).
				Int("strokes", e.Strokes).
				Floats64("position", e.Position[:]).
				Float64("t", clock.T).
				Msg("[SIM] event")
		}
	}

	snap := g.Snapshot()
	snap.T = clock.T
	snap.StepsTaken = clock.StepsTaken
	snap.TimeScale = clock.TimeScale
	return &snap, nil
}
