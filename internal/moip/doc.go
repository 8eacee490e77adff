// Package moip defines the shared domain types for the Binary MoIP video
// matrix controller: endpoint kinds, device counts, routing assignments, and
// the CEC remote-control command catalogue.
//
// The controller exposes two independent control surfaces. The telnet
// subpackage speaks the line-oriented real-time protocol (counts, routing,
// switching, CEC passthrough); the rest subpackage speaks the
// token-authenticated structured API (identity, firmware, video telemetry,
// naming). Neither surface alone describes the whole system, so higher layers
// combine both. The two surfaces also address endpoints differently: the line
// protocol uses small 1-based slot indexes, the structured API uses opaque
// resource IDs. The types here are the common vocabulary for both.
package moip
