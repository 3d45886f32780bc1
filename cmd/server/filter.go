package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	c "github.com/quesurifn/ics-calendar-relay/calendar"
	"github.com/spf13/cobra"
)

func newFilterCmd() *cobra.Command {
	var (
		stats      bool
		maxSegment int
	)

	cmd := &cobra.Command{
		Use:   "filter [file]",
		Short: "Remove cancelled events from a local .ics file and print the result",
		Long: "Reads a calendar from file, or stdin when file is omitted or \"-\", " +
			"and writes it to stdout without cancelled events.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "stdin"
			var in io.Reader = cmd.InOrStdin()

			if len(args) == 1 && args[0] != "-" {
				name = args[0]
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			result, err := c.FilterN(out, in, maxSegment)
			if err != nil {
				return fmt.Errorf("filter %s: %w", name, err)
			}
			if err := out.Flush(); err != nil {
				return err
			}

			if stats {
				return json.NewEncoder(cmd.ErrOrStderr()).Encode(result)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stats, "stats", false, "print filter statistics as JSON to stderr")
	cmd.Flags().IntVar(&maxSegment, "max-segment", c.DefaultMaxSegmentSize, "largest BEGIN: block accepted, in bytes")

	return cmd
}
