package coverage

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the merged coverage of one entity.
type Result struct {
	Key    string
	Length int
	Raw    int
	Merged []Interval
}

// Report holds per-key results in key order plus the keys that failed.
type Report struct {
	Results  []Result
	Failures []error
}

// Options configures a Coverage run.
type Options struct {
	Policy  Policy
	Workers int
	Logger  *zap.Logger
}

// DefaultOptions merges touching intervals on GOMAXPROCS workers.
func DefaultOptions() Options {
	return Options{
		Policy:  DefaultPolicy(),
		Workers: runtime.GOMAXPROCS(0),
		Logger:  zap.NewNop(),
	}
}

// Coverage merges the intervals of every key independently. A key with an
// invalid interval is reported in Failures and left out of Results; the other
// keys are unaffected. Only ctx cancellation returns an error.
func Coverage(ctx context.Context, byKey map[string][]Interval, opts Options) (Report, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		opts.Logger.Warn("no intervals to merge")
		return Report{}, nil
	}

	results := make([]Result, len(keys))
	errs := make([]error, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ivs := byKey[key]
			if err := Validate(key, ivs); err != nil {
				errs[i] = err
				return nil
			}
			results[i] = Result{
				Key:    key,
				Length: TotalLength(ivs, opts.Policy),
				Raw:    RawLength(ivs),
				Merged: MergeIntervals(ivs, opts.Policy),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var rep Report
	for i := range keys {
		if errs[i] != nil {
			opts.Logger.Debug("skip key", zap.Error(errs[i]))
			rep.Failures = append(rep.Failures, errs[i])
			continue
		}
		rep.Results = append(rep.Results, results[i])
	}
	return rep, nil
}
