package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/conduit/internal/config"
	"github.com/ShayCichocki/conduit/internal/state"
)

var reportListLimit int
var reportShowJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored execution reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openReportStore()
		if err != nil {
			return err
		}
		defer db.Close()

		heads, err := db.ListReports(reportListLimit)
		if err != nil {
			return err
		}
		if len(heads) == 0 {
			fmt.Println("no reports stored")
			return nil
		}

		for _, h := range heads {
			status := color.GreenString("ok")
			if !h.Success {
				status = color.RedString("failed")
			}
			fmt.Printf("%-30s %-8s %-10s %s\n",
				h.PlanID, status, h.Duration.Round(time.Millisecond), h.CreatedAt.Local().Format(time.RFC3339))
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show one report in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openReportStore()
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := db.GetReport(args[0])
		if err != nil {
			return err
		}

		if reportShowJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		printReport(report)
		if report.Merged != nil {
			fmt.Printf("\nmerged (%s): %v\n", report.Merged.Strategy, report.Merged.Value)
		}
		return nil
	},
}

var reportRmCmd = &cobra.Command{
	Use:   "rm <plan-id>",
	Short: "Delete a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openReportStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteReport(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted report %s\n", args[0])
		return nil
	},
}

func openReportStore() (*state.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func init() {
	reportListCmd.Flags().IntVar(&reportListLimit, "limit", 20, "Maximum reports to list")
	reportShowCmd.Flags().BoolVar(&reportShowJSON, "json", false, "Print the raw report as JSON")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportRmCmd)
}
