// Package eval scores agent outputs against expected answers, the harness
// used by the guardrail demonstration to check that safe prompts get real
// answers and jailbreak prompts get nothing.
package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skeinworks/skein/pkg/slogx"
)

// Case is a single input with its expected output.
type Case struct {
	Name     string
	Input    string
	Expected string
}

// Task produces the output under evaluation for one input.
type Task func(ctx context.Context, input string) (string, error)

// Scorer grades one output against the expectation, on a 0 to 1 scale.
type Scorer interface {
	Name() string
	Score(ctx context.Context, expected, output string) (float64, error)
}

// Result is the graded outcome of one case.
type Result struct {
	Case   Case
	Output string
	Scores map[string]float64
	Err    error
}

// Report aggregates the results of a run.
type Report struct {
	Results []Result
}

// Mean averages one scorer's scores across all cases that produced output.
// Failed cases count as zero.
func (r Report) Mean(scorer string) float64 {
	if len(r.Results) == 0 {
		return 0
	}
	var sum float64
	for _, res := range r.Results {
		sum += res.Scores[scorer]
	}
	return sum / float64(len(r.Results))
}

// Failed returns the cases whose task errored.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Run evaluates every case with the task and grades the outputs with each
// scorer. Task errors are recorded per case, not fatal to the run.
func Run(ctx context.Context, task Task, cases []Case, scorers ...Scorer) Report {
	report := Report{Results: make([]Result, 0, len(cases))}

	for _, c := range cases {
		result := Result{Case: c, Scores: make(map[string]float64, len(scorers))}

		output, err := task(ctx, c.Input)
		if err != nil {
			result.Err = fmt.Errorf("case %s: %w", c.Name, err)
			slog.ErrorContext(ctx, "eval case failed", slog.String("case", c.Name), slogx.Error(err))
			report.Results = append(report.Results, result)
			continue
		}
		result.Output = output

		for _, scorer := range scorers {
			score, err := scorer.Score(ctx, c.Expected, output)
			if err != nil {
				result.Err = fmt.Errorf("case %s scorer %s: %w", c.Name, scorer.Name(), err)
				slog.ErrorContext(ctx, "scorer failed",
					slog.String("case", c.Name),
					slog.String("scorer", scorer.Name()),
					slogx.Error(err),
				)
				continue
			}
			result.Scores[scorer.Name()] = score
		}

		report.Results = append(report.Results, result)
	}

	return report
}

// ExactMatch scores 1 when the output equals the expectation, 0 otherwise.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact_match" }

func (ExactMatch) Score(_ context.Context, expected, output string) (float64, error) {
	if expected == output {
		return 1, nil
	}
	return 0, nil
}
