// Package common contains utilities and helpers shared across the project.
package common

// PackageName identifies this service in logs and metrics.
const PackageName = "record-sharing-backend"

// Version is set at build time via -ldflags.
var Version = "dev"
