// Package extension provides the closed registry of transition action
// handlers together with the Go type registry used to decode raw action
// configs into typed parameter structs.
//
// The registry is normally populated through the public APIs under the root
// trackflow package, therefore most applications do not need to import this
// package directly.
package extension
