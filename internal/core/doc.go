// Package core provides the curve matching and classification engine.
//
// The engine works on in-memory tables only and performs no I/O. Loading,
// persistence, charts and the report server live in sibling packages and
// talk to core through [Table], [Points], [ResultTable] and the
// [TableWriter] and [ResultWriter] interfaces.
//
// # Pipeline
//
// A run is a chain of values, each stage taking the previous stage's output:
//
//  1. [NewMatcher] checks that the training and candidate tables share one
//     x grid and fails with [ErrAlignment] otherwise.
//  2. [Matcher.FindBestMatches] picks, for each training series, the
//     candidate with the smallest sum of squared errors. The first
//     candidate in column order wins ties.
//  3. [ComputeThresholds] turns each pair's largest absolute deviation into
//     an acceptance bound (times √2), either per candidate or as one global
//     bound, see [ThresholdPolicy].
//  4. [Classifier.MapTestPoints] assigns each test point whose x lies on the
//     grid to the nearest selected candidate, if it is within the bound.
//
// [Execute] runs all four steps; [Service] also persists the result.
//
// # Dataset Registry
//
// Input files are described by a [DatasetSpec] registered at init time
// (see package datasets). One loader serves every spec:
//
//	core.Register(DatasetSpec{
//	    Key:             "training",
//	    Label:           "Training data",
//	    RequiredColumns: []string{"x", "y1", "y2", "y3", "y4"},
//	})
//
// # Error Handling
//
// Errors wrap the sentinels in errors.go and are matched with errors.Is.
// [MapError] maps any error to a [UserMessage] with a support code.
package core
