package deploy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xorcare/golden"

	"github.com/borroe/borroe-actors/support/deploy"
	tutil "github.com/borroe/borroe-actors/support/testing"
)

func TestExplorerURL(t *testing.T) {
	a := tutil.NewIDAddr(t, 1234)
	assert.Equal(t, "https://polygonscan.com/address/t01234#code", deploy.ExplorerURL(deploy.NetworkPolygonMainnet, a))
	assert.Equal(t, "https://mumbai.polygonscan.com/address/t01234#code", deploy.ExplorerURL(deploy.NetworkPolygonTestnet, a))
	assert.Equal(t, "", deploy.ExplorerURL(deploy.NetworkLocal, a))
}

func TestOutputDocument(t *testing.T) {
	out := deploy.Output{
		deploy.NetworkPolygonTestnet: {
			Vesting: deploy.ContractRecord{
				Address:      "t0200",
				Verification: deploy.ExplorerURL(deploy.NetworkPolygonTestnet, tutil.NewIDAddr(t, 200)),
			},
			Borroe: deploy.ContractRecord{
				Address:      "t0201",
				Verification: deploy.ExplorerURL(deploy.NetworkPolygonTestnet, tutil.NewIDAddr(t, 201)),
			},
		},
		deploy.NetworkLocal: {
			Vesting: deploy.ContractRecord{Address: "t0105"},
			Borroe:  deploy.ContractRecord{Address: "t0106"},
			RunID:   "run-1",
		},
	}
	data, err := out.Marshal()
	require.NoError(t, err)
	golden.Assert(t, data)
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployOutput.json")

	t.Run("missing file reads as empty", func(t *testing.T) {
		out, err := deploy.ReadOutput(path)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("entries for other networks are kept", func(t *testing.T) {
		testnet := deploy.NetworkDeployment{
			Vesting: deploy.ContractRecord{Address: "t0200"},
			Borroe:  deploy.ContractRecord{Address: "t0201"},
		}
		require.NoError(t, deploy.WriteOutput(path, deploy.NetworkPolygonTestnet, testnet))

		local := deploy.NetworkDeployment{
			Vesting: deploy.ContractRecord{Address: "t0105"},
			Borroe:  deploy.ContractRecord{Address: "t0106"},
		}
		require.NoError(t, deploy.WriteOutput(path, deploy.NetworkLocal, local))

		out, err := deploy.ReadOutput(path)
		require.NoError(t, err)
		assert.Equal(t, testnet, out[deploy.NetworkPolygonTestnet])
		assert.Equal(t, local, out[deploy.NetworkLocal])
	})

	t.Run("redeploying replaces the network entry", func(t *testing.T) {
		again := deploy.NetworkDeployment{
			Vesting: deploy.ContractRecord{Address: "t0107"},
			Borroe:  deploy.ContractRecord{Address: "t0108"},
		}
		require.NoError(t, deploy.WriteOutput(path, deploy.NetworkLocal, again))

		out, err := deploy.ReadOutput(path)
		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, again, out[deploy.NetworkLocal])
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
		_, err := deploy.ReadOutput(bad)
		assert.Error(t, err)
		assert.Error(t, deploy.WriteOutput(bad, deploy.NetworkLocal, deploy.NetworkDeployment{}))
	})
}
