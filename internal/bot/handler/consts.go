package handler

// ErrNilRCDFatalLogMsg is the standard fatal log message when a handler
// receives a nil registry, config or database on Init.
const ErrNilRCDFatalLogMsg = "registry, cfg or db is nil"

// Embed colors shared by the command handlers.
const (
	ColorGreen   = 0x2ECC71
	ColorRed     = 0xE74C3C
	ColorGold    = 0xF1C40F
	ColorBlue    = 0x3498DB
	ColorOrange  = 0xE67E22
	ColorPurple  = 0x9B59B6
	ColorBlurple = 0x5865F2
)

// RainbowColors is the palette used for celebratory embeds.
var RainbowColors = []int{
	0xFF0000, // red
	0xFF7F00, // orange
	0xFFFF00, // yellow
	0x00FF00, // green
	0x0000FF, // blue
	0x4B0082, // indigo
	0x9400D3, // violet
}
