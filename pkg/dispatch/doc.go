/*
Package dispatch implements §4.8: a command sink opaque to the core. The
replication manager only requires that an accepted command is either
delivered, or its non-delivery eventually surfaces as a replica still missing
in a later container report — it never blocks waiting for delivery
confirmation.

No gRPC/protobuf wire format is wired here (see DESIGN.md): framing the
dispatch RPC to real datanodes is a non-goal of this control plane, so
Dispatcher is an interface with one in-memory reference implementation
(FanOut) suitable for tests and for driving an adapter that does carry
commands over the wire.
*/
package dispatch
