package ir

// Version constants for the document schema and engine.
const (
	// IRVersion is the document schema version.
	IRVersion = "1"

	// EngineVersion is the timeline engine version.
	EngineVersion = "0.1.0"
)
