package builtin

import (
	"github.com/filecoin-project/go-state-types/abi"
)

const (
	MethodSend        = abi.MethodNum(0)
	MethodConstructor = abi.MethodNum(1)
)

var MethodsAccount = struct {
	Constructor   abi.MethodNum
	PubkeyAddress abi.MethodNum
}{MethodConstructor, 2}

var MethodsInit = struct {
	Constructor abi.MethodNum
	Exec        abi.MethodNum
}{MethodConstructor, 2}

var MethodsToken = struct {
	Constructor abi.MethodNum
	Transfer    abi.MethodNum
	BalanceOf   abi.MethodNum
	TotalSupply abi.MethodNum
}{MethodConstructor, 2, 3, 4}

var MethodsVesting = struct {
	Constructor          abi.MethodNum
	StartInitialVestings abi.MethodNum
	ClaimTokens          abi.MethodNum
	GetUserVesting       abi.MethodNum
	SetToken             abi.MethodNum
}{MethodConstructor, 2, 3, 4, 5}
