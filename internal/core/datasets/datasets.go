// Package datasets registers the pipeline's CSV inputs with the core registry.
// Import this package to ensure all datasets are registered.
package datasets

import "github.com/JonMunkholm/curvematch/internal/core"

// Dataset keys. They double as table names in the store.
const (
	Training = "training"
	Ideal    = "ideal"
	Test     = "test"
)

func init() {
	core.Register(core.DatasetSpec{
		Key:             Training,
		Label:           "Training data",
		RequiredColumns: []string{core.XColumn, "y1", "y2", "y3", "y4"},
	})
	core.Register(core.DatasetSpec{
		Key:             Ideal,
		Label:           "Ideal data",
		RequiredColumns: []string{core.XColumn},
	})
	core.Register(core.DatasetSpec{
		Key:             Test,
		Label:           "Test data",
		RequiredColumns: []string{core.XColumn, "y"},
	})
}
