package ir

// Version constants recorded with every journal entry.
const (
	// IRVersion is the payload encoding version.
	IRVersion = "1"

	// EngineVersion is the unistore engine version.
	EngineVersion = "0.1.0"
)
