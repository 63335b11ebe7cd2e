// Package main provides the CLI entry point for discofetch.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"discofetch/pkg/discofetch"
	"discofetch/pkg/discofetch/config"
	"discofetch/pkg/discofetch/discogs"
	"discofetch/pkg/discofetch/logging"
	"discofetch/pkg/discofetch/store"
)

var (
	noURLs     bool
	noDetails  bool
	workers    int
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "discofetch [workbook.xlsx]",
		Short: "Enrich album spreadsheets with record catalog data",
		Long: `discofetch resolves a catalog URL for every album row in an Excel
workbook, then scrapes each record page for pricing and release
details, writing the results back as new columns.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().BoolVar(&noURLs, "no-urls", false, "don't search urls")
	rootCmd.Flags().BoolVar(&noDetails, "no-details", false, "don't search details")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent row fetches (default: from config)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Log format: console, json")

	rootCmd.AddCommand(newConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Run.Workers = workers
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logger, err := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	table, err := store.Load(path)
	if err != nil {
		return err
	}

	site, err := discogs.New(cfg.Site.BaseURL,
		discogs.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}))
	if err != nil {
		return err
	}

	enricher := discofetch.NewEnricher(table, site, logger)
	report, err := enricher.Run(context.Background(), discofetch.Options{
		SkipURLs:    noURLs,
		SkipDetails: noDetails,
		Workers:     cfg.Run.Workers,
	})
	if err != nil {
		return err
	}

	if err := table.Save(path); err != nil {
		return err
	}

	fmt.Println(renderReport(report))
	fmt.Println("Done!")
	return nil
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print an annotated sample configuration file",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.Sample())
		},
	})
	return configCmd
}
