//----------------------------------------------------------------------
// This file is part of wifiget.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// wifiget is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// wifiget is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Command wifiget runs the periodic HTTP fetch on a host computer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfix/wifiget"
	"github.com/bfix/wifiget/internal/history"
	"github.com/bfix/wifiget/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	hostFlag     string
	uriFlag      string
	timeoutFlag  time.Duration
	pollFlag     time.Duration
	legacyLFFlag bool
	verboseFlag  bool

	// run flags
	intervalFlag time.Duration
	ninepFlag    string
	httpFlag     string
	historyFlag  string

	rootCmd = &cobra.Command{
		Use:   "wifiget",
		Short: "Periodic HTTP GET connectivity test",
		Long: `wifiget requests a resource from a remote host over plain HTTP
and logs the response body.

Run the fetch cycle:
  wifiget run --interval 20s --9p :5640 --http :8080

Or fetch once:
  wifiget get --host ifconfig.me --uri /`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verboseFlag {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Level(level).Output(zerolog.ConsoleWriter{Out: os.Stderr})
		},
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Fetch the resource once and print the body",
		RunE:  runGet,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Fetch the resource periodically",
		RunE:  runCycle,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", wifiget.DefaultHost, "Remote host")
	rootCmd.PersistentFlags().StringVar(&uriFlag, "uri", wifiget.DefaultURI, "Request path")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", wifiget.DefaultTimeout, "Max. wait for a response")
	rootCmd.PersistentFlags().DurationVar(&pollFlag, "poll", wifiget.DefaultPoll, "Poll interval while waiting for data")
	rootCmd.PersistentFlags().BoolVar(&legacyLFFlag, "lf", false, "Terminate request and Host lines with bare LF")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")

	runCmd.Flags().DurationVar(&intervalFlag, "interval", wifiget.DefaultInterval, "Fetch interval")
	runCmd.Flags().StringVar(&ninepFlag, "9p", "", "Serve results via 9p on this address")
	runCmd.Flags().StringVar(&httpFlag, "http", "", "Serve status via HTTP on this address")
	runCmd.Flags().StringVar(&historyFlag, "history", "", "History database file (use 'memory' for in-memory db)")

	rootCmd.AddCommand(getCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bring up the network and create a fetch client
func setup(ctx context.Context) (*wifiget.Client, error) {
	slogger := newSlogger(log.Logger)
	dev := wifiget.InitDevice(wifiget.DeviceConfig{Logger: slogger})
	err := wifiget.Bootstrap(ctx, dev.Station(), "", "", wifiget.BootConfig{
		Timeout: time.Minute,
		Logger:  slogger,
	})
	if err != nil {
		return nil, err
	}
	client := wifiget.NewClient(dev.Dialer(), slogger)
	client.Timeout = timeoutFlag
	client.Poll = pollFlag
	if legacyLFFlag {
		client.LineEnding = wifiget.LineEndingLF
	}
	return client, nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	client, err := setup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Network not available")
		return err
	}
	body, err := client.Get(ctx, hostFlag, uriFlag)
	if err != nil {
		log.Error().Err(err).Str("host", hostFlag).Msg("Fetch failed")
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", body)
	return nil
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	client, err := setup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Network not available")
		return err
	}
	journal := wifiget.NewJournal(32)

	// optional persistent history
	var store *history.Store
	if historyFlag != "" {
		dbFilename := historyFlag
		if dbFilename == "memory" {
			dbFilename = ""
		}
		if store, err = history.Open(dbFilename); err != nil {
			log.Error().Err(err).Msg("Cannot open history")
			return err
		}
		defer store.Close()
	}

	// optional 9p namespace
	if ninepFlag != "" {
		ns, err := wifiget.NewFetchNamespace(journal, hostFlag, uriFlag)
		if err != nil {
			return err
		}
		go func() {
			log.Info().Str("listen", ninepFlag).Msg("Serving 9p")
			if err := ns.Serve(ninepFlag); err != nil {
				log.Error().Err(err).Msg("9p server failed")
			}
		}()
	}

	// optional HTTP status
	if httpFlag != "" {
		var hist web.History
		if store != nil {
			hist = store
		}
		srv := &http.Server{Addr: httpFlag, Handler: web.NewRouter(journal, hist)}
		go func() {
			log.Info().Str("listen", httpFlag).Msg("Serving status")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server failed")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	cycle := &wifiget.Cycle{
		Client:   client,
		Host:     hostFlag,
		URI:      uriFlag,
		Interval: intervalFlag,
		Report: func(r *wifiget.Result) {
			journal.Add(r)
			if store != nil {
				if err := store.Put(r); err != nil {
					log.Warn().Err(err).Msg("Cannot store result")
				}
			}
			if r.OK() {
				log.Info().Uint64("seq", r.Seq).Dur("duration", r.Duration).Str("body", string(r.Body)).Msg("Fetched")
			} else {
				log.Error().Uint64("seq", r.Seq).Err(r.Err).Msg("Fetch failed")
			}
			log.Debug().Dur("interval", intervalFlag).Msg("Waiting...")
		},
	}
	if err = cycle.Run(ctx); errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
