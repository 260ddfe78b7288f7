// Package client implements the client side of a FINS/TCP session.
//
// A Session connects to a FINS/TCP server (usually a PLC Ethernet unit on port 9600), performs the
// mandatory node address handshake and then exchanges FINS memory area read commands, one at a time.
//
// The lifecycle of a session is:
//
//  1. Open dials the server and runs the handshake. OpenTransport runs the handshake over a transport
//     supplied by the caller.
//  2. ReadMemoryArea sends one command frame and waits for the matching response. The service ID is
//     incremented for every command and the response is checked against the request: source address
//     and service ID must be echoed back.
//  3. Close releases the transport.
//
// Every wait for the server is bounded by the response timeout (see WithResponseTimeout) and by the
// context passed to the call. When either expires the pending receive is aborted, the session fails
// and the transport is closed. Any other failure also closes the session; the package never retries,
// callers wrap RunSession or Open+ReadMemoryArea if they need to.
//
// RunSession covers the common case of one connect, handshake, read, close sequence, and Group runs such
// sessions for many PLCs concurrently.
//
// Example:
//
//	cfg, err := client.NewSessionConfig("192.168.250.1", 9600,
//		client.WithResponseTimeout(2*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	result, err := client.RunSession(ctx, cfg, client.ReadRequest{Address: fins.DM(100), Count: 150})
//	if err != nil {
//		return err
//	}
//	words := result.Response.Words()
package client
