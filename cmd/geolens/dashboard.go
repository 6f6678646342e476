package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/filter"
	"github.com/amishk599/geolens/internal/stats"
)

var dashboardJSON bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show rock and mineral statistics",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardJSON, "json", false, "print the dashboard as JSON")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	d := stats.Build(filter.Apply(setupFilter(cfg.Filters), all))

	if dashboardJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	printDashboard(d)
	return nil
}

func printDashboard(d stats.Dashboard) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgYellow, color.Bold)
	dim := color.New(color.Faint)

	fmt.Println()
	title.Println("📊 Sample dashboard")
	fmt.Printf("   %d samples", d.SampleCount)
	if d.FirstSampleAt != nil && d.LastSampleAt != nil {
		fmt.Printf("  %s → %s",
			d.FirstSampleAt.Local().Format("2006-01-02"),
			d.LastSampleAt.Local().Format("2006-01-02"))
	}
	fmt.Println()
	if d.SampleCount == 0 {
		fmt.Println()
		return
	}

	fmt.Println()
	label.Println("   Rock types")
	for _, rc := range d.RockTypes {
		bar := strings.Repeat("█", barWidth(rc.Count, d.SampleCount, 30))
		fmt.Printf("   %-20s %4d  %s\n", rc.Name, rc.Count, bar)
	}

	fmt.Println()
	label.Println("   Minerals")
	dim.Printf("   %-20s %5s %8s %8s\n", "name", "seen", "avg %", "max %")
	for _, m := range d.Minerals {
		fmt.Printf("   %-20s %5d %8s %8s\n", m.Name, m.Occurrences,
			m.AveragePercentage.StringFixed(1), m.MaxPercentage.StringFixed(1))
	}
	fmt.Println()
}

// barWidth scales n of total to at most width cells, never less than one.
func barWidth(n, total, width int) int {
	if total <= 0 || n <= 0 {
		return 0
	}
	return max(n*width/total, 1)
}
