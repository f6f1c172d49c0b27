// ABOUTME: mDNS service discovery package
// ABOUTME: Advertise and discover wavstream relays on the local network
// Package discovery provides mDNS service discovery for wavstream relays.
//
// The relay advertises itself as _wavstream-relay._tcp; players without an
// explicit relay address browse for it.
//
// Example:
//
//	mgr := discovery.NewManager(discovery.Config{})
//	defer mgr.Stop()
//	relay, err := mgr.Lookup(ctx)
//	fmt.Println(relay.URL())
package discovery
