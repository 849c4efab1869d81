// Package domain contains the core business entities of the askbase
// retrieval-and-generation pipeline. These are pure domain objects with no
// knowledge of storage, transport, or provider implementations.
package domain
