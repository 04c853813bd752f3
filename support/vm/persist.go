package vm

import (
	"context"
	"os"

	"github.com/filecoin-project/go-state-types/abi"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/xerrors"

	"github.com/borroe/borroe-actors/support/atomicfile"
	"github.com/borroe/borroe-actors/support/ipld"
)

// The persisted form of a VM: the actor table plus every block it references.
type Snapshot struct {
	NetworkName string
	Epoch       abi.ChainEpoch
	Actors      map[string]TestActor
	Blocks      map[string][]byte
}

// Compresses snapshots on disk.
type zstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCodec() (*zstdCodec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, xerrors.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdCodec{encoder: encoder, decoder: decoder}, nil
}

func (z *zstdCodec) compress(val []byte) []byte {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2))
}

func (z *zstdCodec) decompress(val []byte) ([]byte, error) {
	return z.decoder.DecodeAll(val, nil)
}

func (z *zstdCodec) close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

// Captures the current state of the VM. Invocation records and events are not included.
func (vm *VM) Snapshot() *Snapshot {
	actors := make(map[string]TestActor, len(vm.actors))
	for k, a := range vm.actors {
		actors[k] = *a
	}
	return &Snapshot{
		NetworkName: vm.networkName,
		Epoch:       vm.currentEpoch,
		Actors:      actors,
		Blocks:      vm.blocks.Export(),
	}
}

// Writes a compressed snapshot of the VM to path, replacing any previous file atomically.
func (vm *VM) Save(path string) error {
	data, err := json.Marshal(vm.Snapshot())
	if err != nil {
		return xerrors.Errorf("failed to encode snapshot: %w", err)
	}

	codec, err := newZstdCodec()
	if err != nil {
		return err
	}
	defer codec.close()

	if err := atomicfile.Write(path, codec.compress(data), 0o644); err != nil {
		return xerrors.Errorf("failed to save snapshot: %w", err)
	}
	vm.logger.Debug().Str("path", path).Int("actors", len(vm.actors)).Msg("saved vm snapshot")
	return nil
}

// Rebuilds a VM from a snapshot written by Save.
func LoadVM(ctx context.Context, path string, actorImpls ActorImplLookup, opts ...Option) (*VM, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read snapshot: %w", err)
	}

	codec, err := newZstdCodec()
	if err != nil {
		return nil, err
	}
	defer codec.close()

	data, err := codec.decompress(compressed)
	if err != nil {
		return nil, xerrors.Errorf("failed to decompress snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, xerrors.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	return FromSnapshot(ctx, &snap, actorImpls, opts...)
}

// Rebuilds a VM from captured state. The snapshot's network name overrides any option.
func FromSnapshot(ctx context.Context, snap *Snapshot, actorImpls ActorImplLookup, opts ...Option) (*VM, error) {
	vm := NewVM(ctx, actorImpls, opts...)
	if err := vm.blocks.Import(snap.Blocks); err != nil {
		return nil, xerrors.Errorf("corrupt snapshot: %w", err)
	}
	for k, a := range snap.Actors {
		a := a
		if _, ok := vm.getActorImpl(a.Code); !ok {
			return nil, xerrors.Errorf("snapshot actor %s has unknown code %v", k, a.Code)
		}
		vm.actors[k] = &a
	}
	vm.networkName = snap.NetworkName
	vm.currentEpoch = snap.Epoch
	return vm, nil
}

// Exposes the block store backing this VM.
func (vm *VM) Blocks() *ipld.BlockStoreInMemory {
	return vm.blocks
}
