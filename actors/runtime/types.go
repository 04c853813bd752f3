package runtime

import (
	cid "github.com/ipfs/go-cid"
)

// Concrete types associated with the runtime interface.

// VMActor is a concrete implementation of an actor, to be used by a VM.
type VMActor interface {
	// Exports returns a slice of methods exported by this actor, indexed by
	// method number. Skipped/deprecated method numbers will be nil.
	Exports() []interface{}

	// Code returns the code ID for this actor.
	Code() cid.Cid

	// State returns a new State object for this actor. This can be used to
	// decode the actor's state.
	State() interface{}

	// IsSingleton returns whether the actor is a singleton actor (i.e. there may only be one instance
	// of it in the state tree).
	IsSingleton() bool
}
