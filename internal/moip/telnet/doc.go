// Package telnet implements the controller's line protocol client.
//
// The MoIP controller exposes a plain-text command protocol on its telnet
// port: ?-prefixed queries and !-prefixed mutations, one command per line.
// Query responses echo the command prefix ("?Devices=7,10"); mutations
// acknowledge with a literal OK token somewhere in the response.
//
// # Connection Model
//
// Every operation dials a fresh TCP connection, writes a single
// newline-terminated command, reads the response, and closes. There is no
// connection reuse and no pipelining; the controller firmware drops idle
// sessions unpredictably, so short-lived connections are the reliable
// pattern.
//
// A response is complete when a newline arrives, when the "#Error" marker
// appears, or when the read deadline expires, whichever comes first. A
// timeout returns whatever bytes arrived; the parse helpers treat
// truncated or non-matching data as "no result", so an unreachable or
// mid-reboot controller reads as zero devices and an empty routing table
// rather than an error cascade. Only a failed dial or write surfaces as
// ErrUnreachable.
//
// # Usage
//
//	client := telnet.New(telnet.Config{Host: "10.0.1.50"})
//	counts, err := client.DeviceCounts(ctx)
//	if err != nil {
//	    // controller unreachable
//	}
//
//	// Route receiver 7 to transmitter 3
//	ok, err := client.Switch(ctx, 3, 7)
package telnet
