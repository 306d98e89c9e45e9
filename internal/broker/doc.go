// Package broker distributes run events between the executor and anything
// watching a run. Topics isolate runs from each other, subscriptions forward
// events to a typed hook, and two implementations are provided: an in-process
// one backed by haxmap and a NATS one for multi-process setups.
package broker
