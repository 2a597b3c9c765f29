package shell

import (
	"context"
	"flag"
	"runtime"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/log"
	"github.com/digitpad/digitpad/pad"
	"golang.org/x/sync/semaphore"
)

// Result is the prediction for one saved recording.
type Result struct {
	File       string
	Prediction inference.Prediction
	Err        error
}

// classifyFiles replays every file on its own pad, at most jobs at a time.
// Results keep the order of files.
func classifyFiles(ctx context.Context, opts pad.Options, predictor pad.Predictor, files []string, jobs int) []Result {
	if jobs < 1 {
		jobs = 1
	}
	sem := semaphore.NewWeighted(int64(jobs))
	results := make([]Result, len(files))
	var wg sync.WaitGroup

	for i, file := range files {
		results[i] = Result{File: file, Prediction: inference.NoPrediction}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].Err = err
			continue
		}
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			defer sem.Release(1)
			results[i].Prediction, results[i].Err = classifyFile(ctx, opts, predictor, file)
		}(i, file)
	}
	wg.Wait()
	return results
}

func classifyFile(ctx context.Context, opts pad.Options, predictor pad.Predictor, file string) (inference.Prediction, error) {
	rec, err := readRecording(file)
	if err != nil {
		return inference.NoPrediction, err
	}
	p, err := pad.New(opts, predictor)
	if err != nil {
		return inference.NoPrediction, err
	}
	defer p.Close()

	prediction, err := p.Replay(ctx, rec)
	log.Trace.Printf("%s: %v %v", file, prediction, err)
	return prediction, err
}

func classifyCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "classify",
		Help:      "classify saved recordings: classify [-j jobs] files...",
		Completer: fileCompleter(strokesExt),
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("classify", flag.ContinueOnError)
			jobs := flagSet.Int("j", runtime.NumCPU(), "concurrent replays")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}
			if flagSet.NArg() == 0 {
				c.Err(errNoFiles)
				return
			}
			if ctx.Classifier == nil {
				c.Err(errNoModel)
				return
			}

			for _, r := range classifyFiles(ctx.context(), ctx.Options, ctx.predictor(), flagSet.Args(), *jobs) {
				if r.Err != nil {
					c.Printf("%s\terror: %v\n", r.File, r.Err)
					continue
				}
				c.Printf("%s\t%s\n", r.File, r.Prediction)
			}
		},
	}
}
