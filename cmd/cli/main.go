package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"nullbench/domain/sequence"
	"nullbench/internal/config"
	"nullbench/internal/testkit"
	"nullbench/ports"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nullbench-cli",
		Short: "nullbench CLI for running synthetic validations and inspecting chains",
	}

	rootCmd.AddCommand(
		newDemoCmd(),
		newTransitionsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newDemoCmd() *cobra.Command {
	var seed int64
	var length int
	var trialCount int
	var scorerName string
	var strategy string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a full evaluation against a synthetic two-state sequence",
		Long: `Generate an autocorrelated RED/GREEN sequence, score it with one of the
built-in scorers, and test the score against a Markov-randomized null.

Example: nullbench-cli demo --scorer oracle --trials 100 --seed 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, seed, length, trialCount, scorerName, strategy)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Base seed for deterministic runs")
	cmd.Flags().IntVar(&length, "length", 1000, "Synthetic sequence length in days")
	cmd.Flags().IntVar(&trialCount, "trials", 100, "Null trials to generate")
	cmd.Flags().StringVar(&scorerName, "scorer", "streak", "Scorer: constant, proportion, streak, oracle")
	cmd.Flags().StringVar(&strategy, "strategy", config.StrategyChain, "Sampling strategy: chain or cluster")

	return cmd
}

func runDemo(cmd *cobra.Command, seed int64, length, trialCount int, scorerName, strategy string) error {
	kit := testkit.NewKit(seed)
	ref := kit.TwoStateSequence(length, 0.8, 0.9)

	cfg := config.DefaultValidationConfig()
	cfg.BaseSeed = seed
	cfg.Strategy = strategy
	if err := cfg.Validate(); err != nil {
		return err
	}

	var scorer ports.ScorerPort
	switch scorerName {
	case "constant":
		scorer = testkit.ConstantScorer(1.0)
	case "proportion":
		scorer = testkit.ProportionScorer(sequence.LabelGreen)
	case "streak":
		scorer = testkit.StreakScorer(sequence.LabelGreen)
	case "oracle":
		scorer = testkit.OracleScorer(ref, 10.0, 1.0)
	default:
		return fmt.Errorf("unknown scorer %q", scorerName)
	}

	service := kit.Service(cfg)
	outcome, err := service.Evaluate(cmd.Context(), ref, scorer, trialCount)
	if err != nil {
		if outcome == nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run finished without a verdict: %v\n", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sequence: %d days, %s\n", ref.Len(), describeFrequencies(ref))
	fmt.Fprintf(cmd.OutOrStdout(), "run %s status=%s completed=%d failed=%d\n",
		outcome.Run.ID, outcome.Run.Status, outcome.Run.Counts.Completed, outcome.Run.Counts.Failed)

	if outcome.Result != nil {
		pretty, err := json.MarshalIndent(outcome.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	}

	finalCV := 0.0
	if n := len(outcome.Convergence.Checkpoints); n > 0 {
		finalCV = outcome.Convergence.Checkpoints[n-1].CV
	}
	fmt.Fprintf(cmd.OutOrStdout(), "convergence: converged=%v final CV=%.4f (target %.2f)\n",
		outcome.Convergence.Converged, finalCV, cfg.CVTarget)
	return nil
}

func newTransitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions [labels]",
		Short: "Print the first-order transition matrix of a label sequence",
		Long: `Parse a comma-separated label sequence and print its empirical label
frequencies and first-order transition matrix.

Example: nullbench-cli transitions RED,RED,GREEN,GREEN,GREEN,RED`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransitions(cmd, args[0])
		},
	}
	return cmd
}

func runTransitions(cmd *cobra.Command, csv string) error {
	parts := strings.Split(csv, ",")
	labels := make([]sequence.Label, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		labels = append(labels, sequence.Label(p))
	}

	seq, err := sequence.FromLabels(labels)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d days, %s\n", seq.Len(), describeFrequencies(seq))

	matrix := sequence.NewTransitionMatrix(seq)
	alpha := seq.Alphabet()
	for _, from := range alpha.Labels() {
		row := make([]string, 0, alpha.Size())
		for _, to := range alpha.Labels() {
			row = append(row, fmt.Sprintf("P(%s|%s)=%.3f", to, from, matrix.Prob(from, to)))
		}
		marker := ""
		if matrix.IsZeroRow(from) {
			marker = "  (never non-terminal)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s%s\n", strings.Join(row, "  "), marker)
	}
	return nil
}

func describeFrequencies(seq *sequence.StateSequence) string {
	freqs := seq.Frequencies()
	parts := make([]string, 0, seq.Alphabet().Size())
	for _, l := range seq.Alphabet().Labels() {
		parts = append(parts, fmt.Sprintf("%s=%.1f%%", l, 100*freqs.Proportion(l)))
	}
	return strings.Join(parts, " ")
}
