package deploy

import (
	"errors"
	"os"

	addr "github.com/filecoin-project/go-address"
	json "github.com/goccy/go-json"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/support/atomicfile"
)

// Contract names used as keys of the output document.
const (
	ContractVesting = "Vesting"
	ContractToken   = "Borroe"
)

type ContractRecord struct {
	Address      string `json:"address"`
	Verification string `json:"verification,omitempty"`
}

// The deployments made on one network.
type NetworkDeployment struct {
	Vesting ContractRecord `json:"Vesting"`
	Borroe  ContractRecord `json:"Borroe"`
	RunID   string         `json:"runId,omitempty"`
}

// Output is the deployment record kept across runs, keyed by network name.
type Output map[string]NetworkDeployment

// Returns the explorer page of a contract, or "" for networks without an explorer.
func ExplorerURL(network string, a addr.Address) string {
	switch network {
	case NetworkPolygonMainnet:
		return "https://polygonscan.com/address/" + a.String() + "#code"
	case NetworkPolygonTestnet:
		return "https://mumbai.polygonscan.com/address/" + a.String() + "#code"
	default:
		return ""
	}
}

// Reads the output document at path. A missing file yields an empty document.
func ReadOutput(path string) (Output, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Output{}, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", path, err)
	}
	out := Output{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", path, err)
	}
	return out, nil
}

// Encodes the document with two space indentation.
func (o Output) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("failed to encode output: %w", err)
	}
	return append(data, '\n'), nil
}

// Records a network's deployment in the document at path, keeping entries for other networks.
func WriteOutput(path, network string, deployment NetworkDeployment) error {
	out, err := ReadOutput(path)
	if err != nil {
		return err
	}
	out[network] = deployment
	data, err := out.Marshal()
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}
