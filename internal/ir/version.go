package ir

// Version constants for the plan IR and the rewrite engine.
const (
	// IRVersion is the plan IR schema version.
	IRVersion = "1"

	// EngineVersion is the rewrite engine version.
	EngineVersion = "0.1.0"
)
