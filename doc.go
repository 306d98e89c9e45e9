// Package skein runs scripted agent workflows against model providers that
// must be called carefully: completions go through a dispatcher that owns the
// provider, tool calls are executed between model turns, and every step of a
// run is observable through hooks, broker topics and trace spans.
//
// A workflow is a named set of agents and the steps to run through them:
//
//	wf := skein.New(
//	    skein.Name("weather-demo"),
//	    skein.Agents(forecaster),
//	    skein.Steps(skein.Step("forecaster", "What is the weather in Paris?")),
//	)
//
//	hook := &consoleHook{}
//	execCtx := skein.Local[string](hook, skein.WithMaxTurns(5))
//	if err := wf.Run(ctx, execCtx); err != nil {
//	    log.Fatal(err)
//	}
//
// The typed result arrives on the hook's OnResult callback when the run
// completes.
package skein
