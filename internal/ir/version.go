package ir

// Version constants recorded with every archived run.
const (
	// SchemaVersion is the label field schema version.
	SchemaVersion = "1"

	// EngineVersion is the cae engine version.
	EngineVersion = "0.1.0"
)
