// ABOUTME: Conversation protocol package
// ABOUTME: Defines inbound events, outbound messages and the WebSocket client
// Package protocol implements the JSON-over-WebSocket conversation protocol
// spoken by voice agents and by the relay.
//
// Inbound frames are parsed into a closed set of Event types; anything else
// becomes an IgnoredEvent so callers can switch exhaustively.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{URL: "ws://localhost:8000"})
//	if err := client.Dial(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	for ev := range client.Events {
//	    switch ev := ev.(type) {
//	    case protocol.PingEvent:
//	        client.SendPong(ev.EventID)
//	    }
//	}
package protocol
