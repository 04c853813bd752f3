package builtin

import (
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// The built-in actor code IDs
var (
	SystemActorCodeID  cid.Cid
	InitActorCodeID    cid.Cid
	AccountActorCodeID cid.Cid
	TokenActorCodeID   cid.Cid
	VestingActorCodeID cid.Cid
)

var builtinActorNames = map[cid.Cid]string{}

func init() {
	builder := cid.V1Builder{Codec: cid.Raw, MhType: mh.IDENTITY}
	makeBuiltin := func(s string, c *cid.Cid) {
		var err error
		*c, err = builder.Sum([]byte(s))
		if err != nil {
			panic(err)
		}
		builtinActorNames[*c] = s
	}

	makeBuiltin("borroe/1/system", &SystemActorCodeID)
	makeBuiltin("borroe/1/init", &InitActorCodeID)
	makeBuiltin("borroe/1/account", &AccountActorCodeID)
	makeBuiltin("borroe/1/token", &TokenActorCodeID)
	makeBuiltin("borroe/1/vesting", &VestingActorCodeID)

	// Set of actor code types that can represent external signing parties.
	CallerTypesSignable = []cid.Cid{AccountActorCodeID}
}

// IsBuiltinActor returns true if the code belongs to an actor defined in this repo.
func IsBuiltinActor(code cid.Cid) bool {
	_, isBuiltin := builtinActorNames[code]
	return isBuiltin
}

// ActorNameByCode returns the (string) name of the actor given a cid code.
func ActorNameByCode(code cid.Cid) string {
	if !code.Defined() {
		return "<undefined>"
	}

	name, ok := builtinActorNames[code]
	if !ok {
		return "<unknown>"
	}
	return name
}

// Tests whether a code CID represents an actor that can be an external principal: i.e. an account.
func IsPrincipal(code cid.Cid) bool {
	return code.Equals(AccountActorCodeID)
}
