package loader

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/curvematch/internal/core"
	"github.com/JonMunkholm/curvematch/internal/core/datasets"
)

// MaxParallelLoads bounds how many input files LoadInputs reads at once.
var MaxParallelLoads = 3

// Paths names the three CSV files of a run.
type Paths struct {
	Training string
	Ideal    string
	Test     string
}

// Inputs holds the parsed pipeline inputs.
type Inputs struct {
	Training   *core.Table
	Candidates *core.Table
	Points     core.Points
}

// LoadInputs reads the three files concurrently. The training file must
// contain x and every name in trainingSeries; an empty list keeps the
// registered defaults. The first failure cancels the other reads.
func LoadInputs(ctx context.Context, p Paths, trainingSeries []string) (*Inputs, error) {
	trainSpec := core.MustGet(datasets.Training)
	if len(trainingSeries) > 0 {
		trainSpec.RequiredColumns = []string{core.XColumn}
		for _, name := range trainingSeries {
			trainSpec.RequiredColumns = append(trainSpec.RequiredColumns, strings.ToLower(name))
		}
	}

	var in Inputs
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(MaxParallelLoads, 1))

	g.Go(func() (err error) {
		in.Training, err = Load(ctx, p.Training, trainSpec)
		return err
	})
	g.Go(func() (err error) {
		in.Candidates, err = Load(ctx, p.Ideal, core.MustGet(datasets.Ideal))
		return err
	})
	g.Go(func() (err error) {
		in.Points, err = LoadPoints(ctx, p.Test)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}
