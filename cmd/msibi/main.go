// Command msibi runs multistate iterative Boltzmann inversion from a yaml
// configuration, monitors running optimizations, and plots results in the
// terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/jennyfothergill/msibi/internal/potential"
	"github.com/jennyfothergill/msibi/internal/storage"
	"github.com/jennyfothergill/msibi/internal/tui"
)

var version = "dev"

var (
	configFile string
	dataDir    string
	iterations int
	startIter  int
	engineName string
	statusFile string
	tableFile  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "msibi",
		Short: "multistate iterative Boltzmann inversion",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".msibi", "data directory for run artifacts")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an optimization",
		RunE:  runOptimization,
	}
	runCmd.Flags().StringVar(&configFile, "config", "msibi.yaml", "run configuration (yaml)")
	runCmd.Flags().IntVar(&iterations, "iterations", -1, "override iteration count")
	runCmd.Flags().IntVar(&startIter, "start", -1, "override start iteration")
	runCmd.Flags().StringVar(&engineName, "engine", "", "override engine driver")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot fit evolution of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&tableFile, "table", "", "plot a tabulated potential file instead")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "live view of a running optimization",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(statusFile)
		},
	}
	watchCmd.Flags().StringVar(&statusFile, "status", "f_fits.log", "status log to follow")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("msibi", version)
		},
	}

	rootCmd.AddCommand(runCmd, plotCmd, watchCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runOptimization(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runFromConfig(ctx, configFile, dataDir, iterations, startIter, engineName)
}

func plotRun(cmd *cobra.Command, args []string) error {
	if tableFile != "" {
		return plotTable(tableFile)
	}

	store := storage.New(dataDir)
	runID := ""
	if len(args) == 1 {
		runID = args[0]
	} else {
		runs, err := store.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs under %s", dataDir)
		}
		runID = runs[len(runs)-1]
	}

	series, err := storage.LoadFits(fmt.Sprintf("%s/%s", dataDir, runID))
	if err != nil {
		return err
	}
	for _, s := range series {
		fmt.Printf("pair %s, state %s\n", s.Pair, s.State)
		if len(s.FFits) > 1 {
			fmt.Println(asciigraph.Plot(s.FFits, asciigraph.Height(10), asciigraph.Width(60)))
		} else if len(s.FFits) == 1 {
			fmt.Printf("f_fit = %.6f\n", s.FFits[0])
		}
		fmt.Println()
	}
	return nil
}

func plotTable(path string) error {
	cols, err := potential.ReadTable(path)
	if err != nil {
		return err
	}
	if len(cols) < 2 {
		return fmt.Errorf("%s: expected at least 2 columns", path)
	}
	fmt.Println(path)
	fmt.Println(asciigraph.Plot(cols[1], asciigraph.Height(14), asciigraph.Width(70)))
	return nil
}
