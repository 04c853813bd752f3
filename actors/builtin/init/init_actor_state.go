package init

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	xerrors "golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/actors/builtin"
)

type State struct {
	// Robust address string to the ID it was allocated.
	AddressMap  map[string]abi.ActorID
	NextID      abi.ActorID
	NetworkName string
}

func ConstructState(networkName string) *State {
	return &State{
		AddressMap:  make(map[string]abi.ActorID),
		NextID:      abi.ActorID(builtin.FirstNonSingletonActorId),
		NetworkName: networkName,
	}
}

// ResolveAddress resolves an address to an ID-address, if possible.
// If the provided address is an ID address, it is returned as-is.
// This means that mapped ID-addresses (which should only appear as values, not keys) and
// singleton actor addresses (which are not in the map) pass through unchanged.
//
// Returns an ID-address and `true` if the address was already an ID-address or was resolved in the mapping.
// Returns an undefined address and `false` if the address was not an ID-address and not found in the mapping.
// Returns an error only if state was inconsistent.
func (s *State) ResolveAddress(address addr.Address) (addr.Address, bool, error) {
	// Short-circuit ID address resolution.
	if address.Protocol() == addr.ID {
		return address, true, nil
	}

	actorID, found := s.AddressMap[address.String()]
	if !found {
		return addr.Undef, false, nil
	}
	// Reconstruct address from the ActorID.
	idAddr, err := addr.NewIDAddress(uint64(actorID))
	if err != nil {
		return addr.Undef, false, xerrors.Errorf("invalid actor id %d for %v: %w", actorID, address, err)
	}
	return idAddr, true, nil
}

// Allocates a new ID address and stores a mapping of the argument address to it.
// Returns the newly-allocated address.
func (s *State) MapAddressToNewID(address addr.Address) (addr.Address, error) {
	if _, found := s.AddressMap[address.String()]; found {
		return addr.Undef, xerrors.Errorf("address %v already mapped", address)
	}
	actorID := s.NextID
	s.NextID++
	s.AddressMap[address.String()] = actorID

	idAddr, err := addr.NewIDAddress(uint64(actorID))
	if err != nil {
		return addr.Undef, xerrors.Errorf("invalid actor id %d: %w", actorID, err)
	}
	return idAddr, nil
}
