// Package events defines the wire events an agent run emits and the Hook
// interface consumers implement to observe them.
//
// Events carry run and turn identity so that a consumer subscribed to a
// broker topic can stitch a run back together from its parts. Marshaling is
// hand-rolled with sjson/gjson instead of struct tags because the payloads
// are generic and the "type" discriminator has to survive round trips.
package events
