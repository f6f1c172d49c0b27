// ABOUTME: Relay package
// ABOUTME: Bridges browser clients to the conversational agent API
// Package relay runs the WebSocket bridge between local clients and the
// upstream agent.
//
// Each browser connection gets its own upstream socket. Agent messages are
// normalized on the way down and pong replies are fixed on the way up, so
// clients can answer pings with the literal string "ping". Either side
// closing ends the session.
package relay
