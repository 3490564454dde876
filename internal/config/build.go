package config

import "skipai/internal/protocol"

// Channel selects development or production behavior. Development builds
// default to highlight mode (verification during development) and enable
// the relay's broadcast debugging aid; production builds default to hide
// and keep the broadcast disabled.
type Channel string

const (
	ChannelDevelopment Channel = "development"
	ChannelProduction  Channel = "production"
)

// Valid reports whether the channel is recognized.
func (c Channel) Valid() bool {
	return c == ChannelDevelopment || c == ChannelProduction
}

// Dev reports whether this is a development build.
func (c Channel) Dev() bool {
	return c == ChannelDevelopment
}

// DefaultDisplayMode returns the display mode used when no preference is
// stored and when messaging falls back.
func (c Channel) DefaultDisplayMode() protocol.DisplayMode {
	if c.Dev() {
		return protocol.ModeHighlight
	}
	return protocol.ModeHide
}
