// Package driving provides interfaces for application entry points
// (primary/inbound ports). The surrounding service layer calls these;
// core services implement them.
package driving
