package mock

import (
	"fmt"
	"reflect"
	"testing"
)

// Checks that every exported method of an actor has the shape the runtime can dispatch to.
func CheckActorExports(t *testing.T, act interface{ Exports() []interface{} }) {
	for i, m := range act.Exports() {
		if i == 0 || m == nil { // Send is implicit, skipped numbers are nil.
			continue
		}

		t.Run(fmt.Sprintf("method%d-type", i), func(t *testing.T) {
			mrt := &Runtime{t: t}
			mrt.verifyExportedMethodType(reflect.ValueOf(m))
		})
	}
}
