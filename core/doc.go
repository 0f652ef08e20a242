// Package core defines the domain model for the Argus detection engine.
//
// It provides:
//   - Canonical Event schema produced by the (external) normalizer
//   - Finding, the ephemeral output of a detection rule
//   - Alert and its triage lifecycle state machine
//   - AllowlistEntry for suppressing known-safe subjects
//   - RunSummary reporting for a detection run
//
// Storage interfaces are defined where they are consumed (detect, api,
// storage packages), not here. Types in this package carry no behavior
// beyond validation and state transitions.
package core
