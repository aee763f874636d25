/*
Package runner drives one conversation turn and turns it into the ordered
event sequence streamed to clients.

A stream always starts with {"status":"thinking"} and ends with the [DONE]
sentinel. In between, nodes that talk to the user directly (chat and
report_itinerary) are forwarded token by token, and every other node produces
one structural event carrying its last assistant message and, when it touched
planning, the current itinerary.

When the client goes away the runner stops forwarding, but the turn keeps
running on a context detached from the request and is checkpointed as usual.

# Usage

	r := runner.New(assistant, runner.WithLogger(logger))

	req, err := r.Prepare(runner.ChatRequest{UserID: "alice", PlanID: "kyoto", Message: text})
	if err != nil {
		// reject before the stream starts
	}
	err = r.Stream(ctx, req, writer)
*/
package runner
