package basichost

import "github.com/benbjohnson/clock"

// Option configures a BasicHost at construction time.
type Option func(*config)

type config struct {
	addrsFactory AddrsFactory
	enableNAT    bool
	enableRelay  bool
	clock        clock.Clock
}

// WithAddrsFactory overrides the default loopback/wildcard-dropping filter
// applied at the end of addrs() (§4.6 step 7).
func WithAddrsFactory(f AddrsFactory) Option {
	return func(c *config) { c.addrsFactory = f }
}

// WithNATManager enables NAT port-mapping discovery for listen addresses
// (§4.6 step 4).
func WithNATManager() Option {
	return func(c *config) { c.enableNAT = true }
}

// WithAutoRelay enables the AutoRelay glue (§4.6 step 6).
func WithAutoRelay() Option {
	return func(c *config) { c.enableRelay = true }
}

// WithClock injects a clock for the address monitor's timer, for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}
