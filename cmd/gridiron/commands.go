package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MJE43/gridiron-dice/internal/api"
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/play"
	"github.com/MJE43/gridiron-dice/internal/replay"
	"github.com/MJE43/gridiron-dice/internal/rules"
	"github.com/MJE43/gridiron-dice/internal/scripting"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Host match sessions over HTTP",
		Long: `Start the HTTP session host on GRIDIRON_ADDR.

Each match keeps one committed state. A play that needs a chaos die is held
until POST /api/v1/matches/{id}/chaos supplies the d20.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.NewServer(a.cfg, a.logger).ListenAndServe(ctx)
		},
	}
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "replay <tape.yaml>",
		Short: "Replay a recorded dice tape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tape, err := replay.LoadTape(args[0])
			if err != nil {
				return err
			}
			st := tape.State(teamOptions(a)...)
			rep, err := a.runner(0).Run(cmd.Context(), st, replay.NewTapeSource(tape))
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), rep, asJSON, verbose)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the play-by-play")
	return cmd
}

func newScriptCmd(a *app) *cobra.Command {
	var (
		plays   int
		seed    int64
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "script <file.js>",
		Short: "Play a match with dice rolled by a JavaScript script",
		Long: `Run a match whose dice come from a script. The script must define

  function roll(sides, game) { ... }

returning an integer between 1 and sides. Math.random is seeded, so a script
and seed always produce the same match. Calling stop() ends the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.ScriptSeed
			}
			src, err := scripting.NewSource(string(source), seed)
			if err != nil {
				return err
			}
			rep, err := a.runner(plays).Run(cmd.Context(), match.New(teamOptions(a)...), src)
			for _, l := range src.Logs() {
				a.logger.Info("script", zap.String("message", l.Message))
			}
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), rep, asJSON, verbose)
		},
	}
	cmd.Flags().IntVarP(&plays, "plays", "n", 100, "number of plays to run")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Math.random seed (default GRIDIRON_SCRIPT_SEED)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the play-by-play")
	return cmd
}

func newRulesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the dice tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, api.RulesResponse{
					Outcomes:      rules.OutcomeTable(),
					Chaos:         rules.ChaosTable(),
					EngineVersion: api.EngineVersion,
				})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "D6\tOUTCOME\tD10")
			for _, o := range rules.OutcomeTable() {
				d10 := ""
				if o.NeedsD10 {
					d10 = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", o.Die, o.Label, d10)
			}
			fmt.Fprintln(tw, "\nD20\tCHAOS\t")
			for _, c := range rules.ChaosTable() {
				band := fmt.Sprintf("%d-%d", c.Min, c.Max)
				if c.Min == c.Max {
					band = fmt.Sprint(c.Min)
				}
				fmt.Fprintf(tw, "%s\t%s\t\n", band, c.Label)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tables as JSON")
	return cmd
}

func (a *app) runner(maxPlays int) replay.Runner {
	return replay.Runner{
		Resolver: play.Resolver{Entries: match.SequenceSource{Base: time.Now().UTC()}},
		Logger:   a.logger,
		MaxPlays: maxPlays,
	}
}

func teamOptions(a *app) []match.Option {
	return []match.Option{
		match.WithTeamName(match.User, a.cfg.UserTeamName),
		match.WithTeamName(match.NPC, a.cfg.NPCTeamName),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(w io.Writer, rep replay.Report, asJSON, verbose bool) error {
	if asJSON {
		return writeJSON(w, rep)
	}

	if verbose {
		for _, step := range rep.Steps {
			fmt.Fprintf(w, "#%d d6=%d%s\n", step.N, step.Dice.D6, extraDice(step.Dice))
			for _, e := range step.Log {
				fmt.Fprintf(w, "    %s\n", e.Text)
			}
		}
		fmt.Fprintln(w)
	}

	final := rep.Final
	user, npc := final.Teams[match.User], final.Teams[match.NPC]
	fmt.Fprintf(w, "%s %d - %d %s after %d plays\n", user.Name, user.Score, npc.Score, npc.Name, rep.Stats.Plays)
	g := final.Game
	fmt.Fprintf(w, "Q%d %d:%02d  %s ball, %s and %d at the %d\n",
		g.Quarter, g.ClockSec/60, g.ClockSec%60, final.Teams[g.Possession].Name, downName(g.Down), g.ToGo, g.BallOn)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nTEAM\tTD\tTURNOVERS\tNET YARDS")
	for _, id := range []match.TeamID{match.User, match.NPC} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", final.Teams[id].Name,
			rep.Stats.Touchdowns[id], rep.Stats.Turnovers[id], rep.Stats.NetYards[id])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nlongest gain %d, longest sack streak %d, chaos rolls %d\n",
		rep.Stats.LongestGain, rep.Stats.MaxSackStreak, sum(rep.Stats.Chaos))
	return nil
}

func extraDice(d play.Dice) string {
	s := ""
	if d.D10 != nil {
		s += fmt.Sprintf(" d10=%d", *d.D10)
	}
	if d.D20 != nil {
		s += fmt.Sprintf(" d20=%d", *d.D20)
	}
	return s
}

func downName(down int) string {
	switch down {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	default:
		return fmt.Sprintf("%dth", down)
	}
}

func sum[K comparable](m map[K]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
