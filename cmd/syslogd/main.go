// Command syslogd runs the non-blocking UDP syslog collector described in
// SPEC_FULL.md: `syslogd ingest` drives the UDP receiver, batch writer and
// shutdown coordinator (C5–C7); `syslogd query` serves the minimal
// read-side HTTP API fronting the Log Query Runner (C10).
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	root := &cobra.Command{
		Use:     "syslogd",
		Short:   "Non-blocking UDP syslog collector and search planner",
		Version: version,
	}

	root.AddCommand(newIngestCmd())
	root.AddCommand(newQueryCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("syslogd: command failed")
		os.Exit(1)
	}
}
