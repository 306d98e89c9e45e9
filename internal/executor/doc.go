// Package executor drives an agent run: ask the model for a completion,
// execute any tool calls it requested, feed the results back, and repeat
// until the model produces a final answer or the turn budget runs out.
//
// Each phase of the loop is wrapped in a trace span and every message is
// published to the run's broker topic, so a subscriber sees the same
// sequence a local hook does.
package executor
