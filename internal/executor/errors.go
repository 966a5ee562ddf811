package executor

import "go.trai.ch/zerr"

var (
	// ErrRunFailed is returned by [Engine.Run] when one or more forced
	// recipes failed; the surviving forced recipes were still attempted.
	ErrRunFailed = zerr.New("one or more forced recipes failed")

	// ErrDependencyFailed is returned when a recipe's post-order traversal
	// reaches a recipe already marked [recipe.Status.Failed] this run.
	ErrDependencyFailed = zerr.New("dependency already failed this run")

	// ErrUnknownRecipe names a CLI-supplied recipe reference that does not
	// resolve against the graph. [Engine.Run] does not return it: it logs a
	// plain warning and skips the reference.
	ErrUnknownRecipe = zerr.New("unknown recipe")
)
