package models

// Mode tells whether the console owns the data or only mirrors a published manifest
type Mode string

const (
	ModeOwner   Mode = "owner"
	ModeVisitor Mode = "visitor"
)
