package cache

const (
	KeyStops = "catalog:stops"
	KeyLines = "catalog:lines"
)
