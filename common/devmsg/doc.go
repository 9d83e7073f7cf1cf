// Package devmsg defines the generic message envelope exchanged between clients and servers on a
// port, and the framing used to carry it over byte streams.
//
// Each message has a type discriminant, an input side filled by the client and an output side filled
// by the server. The per-kind fields of each side are tagged variants: they can only be reached through
// the accessor for the message type (for example Msg.DevCtlIn), which returns ok=false for any other
// kind.
package devmsg
