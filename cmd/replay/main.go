// Command replay runs a recorded JSONL landmark stream through an exercise
// session on a simulated clock and prints every state change.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/posecoach/internal/logging"
	"github.com/2beens/posecoach/internal/protocol"
	"github.com/2beens/posecoach/internal/replay"
	"github.com/2beens/posecoach/pkg"
)

type options struct {
	protocolName  string
	protocolsPath string
	tail          time.Duration
	maxGap        time.Duration
	jsonOutput    bool
	logLevel      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay a recorded landmark stream through an exercise session",
		Long: `Replay reads JSON Lines records of the form
  {"t": <seconds since start>, "bodies": [[landmark, ...]], "error": ""}
from file, or from stdin when file is "-" or missing, and drives a session
for the chosen protocol one simulated second at a time.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.protocolName, "protocol", "p", protocol.HamstringStretch.Name, "protocol to run")
	cmd.Flags().StringVar(&opts.protocolsPath, "protocols", "", "YAML file with extra protocols")
	cmd.Flags().DurationVar(&opts.tail, "tail", 0, "keep ticking this long after the last record")
	cmd.Flags().DurationVar(&opts.maxGap, "max-gap", replay.DefaultMaxGap, "reject records further apart than this")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print steps as JSON lines")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level [trace | debug | info | warn | error]")

	return cmd
}

func runReplay(cmd *cobra.Command, args []string, opts *options) error {
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logging.GetLevel(opts.logLevel))

	catalog, err := protocol.LoadCatalog(opts.protocolsPath)
	if err != nil {
		return err
	}
	p, err := catalog.Get(opts.protocolName)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	emit := func(step replay.Step) error {
		if opts.jsonOutput {
			return enc.Encode(step)
		}
		st := step.State
		_, err := fmt.Fprintf(out, "[%6s] %-13s set %d/%d  %-10s timer %3d  %s\n",
			step.At, st.Status, st.CurrentSet, st.TotalSets, st.CurrentSide, st.TimerSeconds, st.Transition,
		)
		return err
	}

	summary, err := replay.Run(cmd.Context(), in, replay.Params{
		Protocol: p,
		Tail:     opts.tail,
		MaxGap:   opts.maxGap,
	}, emit)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return enc.Encode(summary)
	}
	_, err = fmt.Fprintf(out, "%s: %d frames, %d correct, %d detector errors, %s simulated, final status %s\n",
		p.Name, summary.Frames, summary.CorrectFrames, summary.DetectorErrors, summary.Duration, summary.Final.Status,
	)
	return err
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}

	exists, err := pkg.PathExists(args[0], false)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, fmt.Errorf("replay file [%s] not found", args[0])
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, err
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Errorf("close %s: %s", args[0], err)
		}
	}, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
