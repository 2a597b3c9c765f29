package shell

import (
	"context"

	"github.com/abiosoft/ishell"
	"github.com/digitpad/digitpad/inference"
	"github.com/digitpad/digitpad/pad"
	"github.com/pkg/errors"
)

var (
	errNoModel = errors.New("no model configured")
	errNoFiles = errors.New("missing files")
)

// ShellCtxt is the state shared by all commands.
type ShellCtxt struct {
	Pad        *pad.Pad
	Classifier *inference.Classifier
	Options    pad.Options
	Context    context.Context
}

func (ctx *ShellCtxt) context() context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

// predictor hides a nil classifier behind a nil interface so pads treat it
// as offline.
func (ctx *ShellCtxt) predictor() pad.Predictor {
	if ctx.Classifier == nil {
		return nil
	}
	return ctx.Classifier
}

// RunShell executes args as a single command when given, otherwise starts
// the interactive prompt.
func RunShell(ctx *ShellCtxt, args []string) error {
	shell := ishell.New()

	shell.SetPrompt("[digitpad]>")

	shell.AddCmd(downCmd(ctx))
	shell.AddCmd(moveCmd(ctx))
	shell.AddCmd(upCmd(ctx))
	shell.AddCmd(strokeCmd(ctx))
	shell.AddCmd(penCmd(ctx))
	shell.AddCmd(clearCmd(ctx))
	shell.AddCmd(predictCmd(ctx))
	shell.AddCmd(statusCmd(ctx))
	shell.AddCmd(showCmd(ctx))
	shell.AddCmd(tensorCmd(ctx))
	shell.AddCmd(saveCmd(ctx))
	shell.AddCmd(loadCmd(ctx))
	shell.AddCmd(exportCmd(ctx))
	shell.AddCmd(classifyCmd(ctx))

	if len(args) > 0 {
		return shell.Process(args...)
	}

	shell.Printf("digitpad: %dx%d canvas, %dx%d model input. Type help for commands.\n",
		ctx.Options.Side, ctx.Options.Side, ctx.Options.Block, ctx.Options.Block)
	shell.Run()
	return nil
}
