package ir

// Version constants for the query graph snapshot format and the binary.
const (
	// GraphVersion is the query graph snapshot schema version.
	GraphVersion = "1"

	// Version is the graphgate release version.
	Version = "0.1.0"
)
