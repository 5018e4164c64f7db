package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/executor"
	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/planner"
	"github.com/jonathan/applypilot/internal/types"
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Discover and fill a form in one shot",
	Long: `Loads a posting URL in a headless browser, discovers its form fields,
builds a fill plan from a profile JSON file, and prints the plan.
With --apply the planned actions are executed against the page before printing.`,
	RunE: runFill,
}

var (
	fillURL      string
	fillProfile  string
	fillResume   string
	fillApply    bool
	fillHeadless bool
	fillVerbose  bool
	fillTimeout  int
)

func init() {
	fillCmd.Flags().StringVar(&fillURL, "url", "", "Posting URL to load (required)")
	fillCmd.Flags().StringVar(&fillProfile, "profile", "", "Path to profile JSON file (required)")
	fillCmd.Flags().StringVar(&fillResume, "resume", "", "Path to resume text file (optional, used for suggestions)")
	fillCmd.Flags().BoolVar(&fillApply, "apply", false, "Execute the planned actions against the page")
	fillCmd.Flags().BoolVar(&fillHeadless, "headless", true, "Run the browser without a window")
	fillCmd.Flags().BoolVarP(&fillVerbose, "verbose", "v", false, "Print formatted summaries to stderr")
	fillCmd.Flags().IntVar(&fillTimeout, "timeout", 120, "Overall budget in seconds")
	_ = fillCmd.MarkFlagRequired("url")
	_ = fillCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(fillCmd)
}

// fillOutput is what the fill command prints.
type fillOutput struct {
	Fields []types.FieldCandidate `json:"fields"`
	Plan   *types.FillPlan        `json:"plan"`
	Result *types.ExecutionResult `json:"result,omitempty"`
}

func runFill(_ *cobra.Command, _ []string) error {
	profile, err := loadProfile(fillProfile)
	if err != nil {
		return err
	}

	var resume *types.Resume
	if fillResume != "" {
		content, err := os.ReadFile(fillResume)
		if err != nil {
			return fmt.Errorf("failed to read resume file: %w", err)
		}
		resume = &types.Resume{Name: fillResume, Content: string(content)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(fillTimeout)*time.Second)
	defer cancel()

	provisioner := browser.NewProvisioner(browser.Options{Headless: fillHeadless})
	defer provisioner.Shutdown()

	res, err := provisioner.Provision(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() { _ = res.Close(context.Background()) }()

	if err := res.Navigate(ctx, fillURL); err != nil {
		return err
	}

	fields, err := discovery.Discover(ctx, res.Tree())
	if err != nil {
		return fmt.Errorf("field discovery failed: %w", err)
	}

	plan := planner.Build(planner.Input{
		Profile: profile,
		Resume:  resume,
		Fields:  fields,
	})

	printer := observability.NewPrinter(os.Stderr)
	if fillVerbose {
		printer.PrintFieldCandidates(fields)
		printer.PrintFillPlan(plan)
	}

	out := fillOutput{Fields: fields, Plan: plan}
	if fillApply {
		result, err := executor.Execute(ctx, res.Tree(), plan.Actions)
		if err != nil {
			return fmt.Errorf("plan execution failed: %w", err)
		}
		out.Result = result
		if fillVerbose {
			printer.PrintExecutionResult(result)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadProfile(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	var profile types.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return &profile, nil
}
