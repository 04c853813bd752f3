package init

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"

	"github.com/borroe/borroe-actors/actors/builtin"
)

type StateSummary struct {
	AddrIDs map[string]abi.ActorID
	NextID  abi.ActorID
}

// Checks internal invariants of init state.
func CheckStateInvariants(st *State) (*StateSummary, *builtin.MessageAccumulator) {
	acc := &builtin.MessageAccumulator{}

	acc.Require(len(st.NetworkName) > 0, "network name is empty")
	acc.Require(st.NextID >= builtin.FirstNonSingletonActorId, "next id %d is too low", st.NextID)

	reverse := make(map[abi.ActorID]string, len(st.AddressMap))
	for key, actorID := range st.AddressMap {
		keyAddr, err := addr.NewFromString(key)
		acc.RequireNoError(err, "key %q is not an address", key)
		if err == nil {
			acc.Require(keyAddr.Protocol() != addr.ID, "key %v is an ID address", keyAddr)
		}
		acc.Require(actorID >= builtin.FirstNonSingletonActorId, "unexpected singleton ID value %d", actorID)
		acc.Require(actorID < st.NextID, "id %d for %s is not below next id %d", actorID, key, st.NextID)

		if other, found := reverse[actorID]; found {
			acc.Addf("duplicate mapping to ID %d: %s, %s", actorID, key, other)
		}
		reverse[actorID] = key
	}

	return &StateSummary{
		AddrIDs: st.AddressMap,
		NextID:  st.NextID,
	}, acc
}
