// Package services implements the driving port interfaces.
// Services contain the core pipeline and retrieval logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no external service bindings of their own.
package services
