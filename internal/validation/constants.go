package validation

const (
	// Terminal credentials are typed at the till, so they stay short but not trivial
	MinCredentialLength = 6
	MaxCredentialLength = 72

	MaxTerminalNameLength = 64
	MaxReferenceLength    = 128
	MaxReasonLength       = 255
)
