// Package interaction correlates OCPP responses with outstanding requests.
//
// Each link owns one Correlator. Sending a CALL registers a Pending entry
// under its request id; the matching CALLRESULT or CALLERROR completes it.
// Every entry ends in exactly one terminal state:
//
//	Created -> Sent -> Acknowledged | TimedOut | Cancelled | ConnectionLost
//
// The first terminal event wins and later ones are no-ops. Timeouts are
// enforced by a timer per entry, so an entry never outlives its deadline.
// Cancelling a wait is local: the request stays registered until its
// response arrives or its timer fires, and a response arriving after that
// is discarded with a protocol log event.
//
// # Usage
//
//	corr := interaction.NewCorrelator(interaction.WithDefaultTimeout(30 * time.Second))
//	client := interaction.NewClient(link, corr)
//
//	resp := interaction.Call(ctx, client, entry, req, path)
//	if !resp.IsOK() {
//	    // resp.Result says why
//	}
package interaction
