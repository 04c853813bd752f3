package exported

import (
	"github.com/borroe/borroe-actors/actors/builtin/account"
	init_ "github.com/borroe/borroe-actors/actors/builtin/init"
	"github.com/borroe/borroe-actors/actors/builtin/system"
	"github.com/borroe/borroe-actors/actors/builtin/token"
	"github.com/borroe/borroe-actors/actors/builtin/vesting"
	"github.com/borroe/borroe-actors/actors/runtime"
)

func BuiltinActors() []runtime.VMActor {
	return []runtime.VMActor{
		account.Actor{},
		init_.Actor{},
		system.Actor{},
		token.Actor{},
		vesting.Actor{},
	}
}
