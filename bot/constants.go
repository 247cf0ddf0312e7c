package bot

// Discord color constants
const (
	ColorSuccess = 0x57F287 // Green
	ColorWarning = 0xFEE75C // Yellow
	ColorInfo    = 0x3498DB // Blue
)
