package identify

// config holds the resolved settings from a NewIDService call's Options.
type config struct {
	userAgent               string
	protocolVersion         string
	disableSignedPeerRecord bool
}

// Option configures a NewIDService call (§1A functional-options convention).
type Option func(*config)

// UserAgent overrides the default agent-version string advertised to peers.
func UserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// ProtocolVersion overrides the default protocol-version string.
func ProtocolVersion(pv string) Option {
	return func(c *config) { c.protocolVersion = pv }
}

// DisableSignedPeerRecord omits the signedPeerRecord field from outgoing
// identify messages, matching the teacher's escape hatch for hosts that
// never generate certified addresses.
func DisableSignedPeerRecord() Option {
	return func(c *config) { c.disableSignedPeerRecord = true }
}
