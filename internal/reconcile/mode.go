package reconcile

// Mode is what the kiosk display should be showing
type Mode int

const (
	// ModeOff means the display is powered down with no browser running
	ModeOff Mode = iota
	// ModeSonify shows the music visualizer while Sonos is playing
	ModeSonify
	// ModeWeather shows the weather dashboard during the morning window
	ModeWeather
)

// String implements fmt.Stringer
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeSonify:
		return "sonify"
	case ModeWeather:
		return "weather"
	default:
		return "unknown"
	}
}
