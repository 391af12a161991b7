package terminal

// DefaultTerminalLimit is the number of cash boxes a merchant may register
// unless TERMINAL_LIMIT_PER_MERCHANT says otherwise.
const DefaultTerminalLimit = 5
