package builtin

import (
	"fmt"
	"testing"

	rtt "github.com/filecoin-project/go-state-types/rt"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"

	"github.com/borroe/borroe-actors/actors/runtime"
)

type stateMock struct{}

type actorMock struct{}

func (a actorMock) Exports() []interface{} {
	return []interface{}{
		MethodConstructor: a.Constructor,
	}
}

func (a actorMock) Code() cid.Cid {
	return SystemActorCodeID
}

func (a actorMock) IsSingleton() bool {
	return true
}

func (a actorMock) State() interface{} { return new(stateMock) }

func (a actorMock) Constructor(rt runtime.Runtime, _ *runtime.EmptyValue) *runtime.EmptyValue {
	rt.Log(GetActorLogLevel(a, rtt.DEBUG), "Constructor func")
	return nil
}

func TestActorLogLevel(t *testing.T) {
	actorMock := actorMock{}
	defer ResetActorsLogLevel()

	t.Run("log with default", func(t *testing.T) {
		assert.Equal(t, rtt.DEBUG, GetActorLogLevel(actorMock, rtt.DEBUG))
		assert.Equal(t, rtt.INFO, GetActorLogLevel(actorMock, rtt.INFO))
		assert.Equal(t, rtt.WARN, GetActorLogLevel(actorMock, rtt.WARN))
		assert.Equal(t, rtt.ERROR, GetActorLogLevel(actorMock, rtt.ERROR))
	})

	for _, def := range []rtt.LogLevel{rtt.DEBUG, rtt.INFO, rtt.WARN, rtt.ERROR} {
		t.Run(fmt.Sprintf("set log level with default %d", def), func(t *testing.T) {
			for _, level := range []rtt.LogLevel{rtt.DEBUG, rtt.INFO, rtt.WARN, rtt.ERROR} {
				SetActorsLogLevel(level, actorMock)
				assert.Equal(t, level, GetActorLogLevel(actorMock, def))
			}
		})
	}

	t.Run("reset", func(t *testing.T) {
		SetActorsLogLevel(rtt.ERROR, actorMock)
		ResetActorsLogLevel()
		assert.Equal(t, rtt.WARN, GetActorLogLevel(actorMock, rtt.WARN))
	})
}

func TestActorNameByCode(t *testing.T) {
	assert.Equal(t, "borroe/1/vesting", ActorNameByCode(VestingActorCodeID))
	assert.Equal(t, "borroe/1/token", ActorNameByCode(TokenActorCodeID))
	assert.Equal(t, "<undefined>", ActorNameByCode(cid.Undef))
	assert.True(t, IsBuiltinActor(AccountActorCodeID))
	assert.True(t, IsPrincipal(AccountActorCodeID))
	assert.False(t, IsPrincipal(TokenActorCodeID))
}

func TestMessageAccumulator(t *testing.T) {
	acc := &MessageAccumulator{}
	assert.True(t, acc.IsEmpty())

	acc.Require(true, "never %d", 1)
	assert.True(t, acc.IsEmpty())

	acc.Require(false, "balance %d negative", -1)
	prefixed := acc.WithPrefix("record %s: ", "t0100")
	prefixed.Addf("claimed %d exceeds total", 5)

	other := &MessageAccumulator{}
	other.Add("from other")
	acc.AddAll(other)

	assert.Equal(t, []string{
		"balance -1 negative",
		"record t0100: claimed 5 exceeds total",
		"from other",
	}, acc.Messages())
}
