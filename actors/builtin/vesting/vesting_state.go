package vesting

import (
	addr "github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"

	"github.com/borroe/borroe-actors/actors/runtime/exitcode"
)

type VestingStatus uint8

const (
	StatusActive VestingStatus = iota
	StatusFullyClaimed
)

func (s VestingStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusFullyClaimed:
		return "FULLY_CLAIMED"
	default:
		return "UNKNOWN"
	}
}

// The vesting actor moves from uninitialized to initialized exactly once.
type LifecyclePhase uint8

const (
	PhaseUninitialized LifecyclePhase = iota
	PhaseInitialized
)

// Allocation and claim progress of a single beneficiary.
type VestingRecord struct {
	Status            VestingStatus
	Beneficiary       addr.Address
	TotalAmount       abi.TokenAmount
	ClaimedAmount     abi.TokenAmount
	StartEpoch        abi.ChainEpoch
	ClaimablePeriods  uint64
	PeriodDuration    abi.ChainEpoch
	LastClaimedPeriod uint64
}

type State struct {
	// Privileged caller for token configuration and schedule initialization.
	Owner addr.Address
	// The token actor funds are drawn from. Nil until configured.
	Token *addr.Address
	Phase LifecyclePhase

	InitialHolders []addr.Address
	Team           addr.Address
	Partners       addr.Address

	// Token balance distributed when schedules were initialized.
	InitialBalance abi.TokenAmount
	// Records keyed by beneficiary address string.
	Records map[string]*VestingRecord
}

func ConstructState(owner addr.Address, initialHolders []addr.Address, team, partners addr.Address) *State {
	return &State{
		Owner:          owner,
		Phase:          PhaseUninitialized,
		InitialHolders: initialHolders,
		Team:           team,
		Partners:       partners,
		InitialBalance: big.Zero(),
		Records:        make(map[string]*VestingRecord),
	}
}

// Returns the configured token address, if any.
func (st *State) TokenAddress() (addr.Address, bool) {
	if st.Token == nil {
		return addr.Undef, false
	}
	return *st.Token, true
}

// Replaces the token address, returning the previous one (Undef if none).
// Records created earlier keep their amounts.
func (st *State) SetToken(token addr.Address) (addr.Address, error) {
	if token == addr.Undef {
		return addr.Undef, ErrInvalidConfiguration.Wrapf("invalid token address")
	}
	old, _ := st.TokenAddress()
	if old == token {
		return old, ErrNoOp.Wrapf("same token %v", token)
	}
	st.Token = &token
	return old, nil
}

// Creates the vesting records from the balance held by the vesting actor.
// Initial holders share their pool evenly with any remainder going to the last holder.
// A beneficiary listed in more than one group receives a single record holding the sum of
// its allocations, on the longest of its groups' schedules so no lock is shortened.
func (st *State) InitializeSchedules(balance abi.TokenAmount, currEpoch abi.ChainEpoch) ([]*VestingRecord, error) {
	if st.Phase != PhaseUninitialized {
		return nil, exitcode.ErrIllegalState.Wrapf("initial vestings already started")
	}
	if _, ok := st.TokenAddress(); !ok {
		return nil, ErrInvalidConfiguration.Wrapf("token not configured")
	}
	if balance.LessThanEqual(big.Zero()) {
		return nil, exitcode.ErrInsufficientFunds.Wrapf("insufficient balance %v", balance)
	}
	if len(st.InitialHolders) == 0 {
		return nil, exitcode.ErrIllegalState.Wrapf("no initial holders")
	}

	holderPool, teamPool, partnersPool := SplitPools(balance)

	n := big.NewInt(int64(len(st.InitialHolders)))
	share := big.Div(holderPool, n)
	lastShare := big.Sub(holderPool, big.Mul(share, big.Sub(n, big.NewInt(1))))

	// Records are built aside and committed only once every allocation succeeds.
	records := make(map[string]*VestingRecord, len(st.InitialHolders)+2)
	var created []*VestingRecord
	add := func(beneficiary addr.Address, amount abi.TokenAmount, spec VestSpec) error {
		if amount.LessThanEqual(big.Zero()) {
			return exitcode.ErrInsufficientFunds.Wrapf("balance %v too small to allocate to %v", balance, beneficiary)
		}
		if rec, ok := records[beneficiary.String()]; ok {
			rec.TotalAmount = big.Add(rec.TotalAmount, amount)
			current := VestSpec{ClaimablePeriods: rec.ClaimablePeriods, PeriodDuration: rec.PeriodDuration}
			if spec.Duration() > current.Duration() {
				rec.ClaimablePeriods = spec.ClaimablePeriods
				rec.PeriodDuration = spec.PeriodDuration
			}
			return nil
		}
		rec := &VestingRecord{
			Status:            StatusActive,
			Beneficiary:       beneficiary,
			TotalAmount:       amount,
			ClaimedAmount:     big.Zero(),
			StartEpoch:        currEpoch,
			ClaimablePeriods:  spec.ClaimablePeriods,
			PeriodDuration:    spec.PeriodDuration,
			LastClaimedPeriod: 0,
		}
		records[beneficiary.String()] = rec
		created = append(created, rec)
		return nil
	}

	for i, holder := range st.InitialHolders {
		amount := share
		if i == len(st.InitialHolders)-1 {
			amount = lastShare
		}
		if err := add(holder, amount, InitialHolderVestSpec); err != nil {
			return nil, err
		}
	}
	if err := add(st.Team, teamPool, CliffVestSpec); err != nil {
		return nil, err
	}
	if err := add(st.Partners, partnersPool, CliffVestSpec); err != nil {
		return nil, err
	}

	st.Records = records
	st.InitialBalance = balance
	st.Phase = PhaseInitialized
	return created, nil
}

// Computes the periods elapsed at an epoch and the amount releasable for them, without
// mutating the record.
func (r *VestingRecord) Releasable(currEpoch abi.ChainEpoch) (abi.TokenAmount, uint64) {
	if currEpoch < r.StartEpoch || r.PeriodDuration <= 0 || r.ClaimablePeriods == 0 {
		return big.Zero(), 0
	}
	periodsElapsed := uint64((currEpoch - r.StartEpoch) / r.PeriodDuration)
	if periodsElapsed > r.ClaimablePeriods {
		periodsElapsed = r.ClaimablePeriods
	}
	if periodsElapsed <= r.LastClaimedPeriod {
		return big.Zero(), r.LastClaimedPeriod
	}

	if periodsElapsed == r.ClaimablePeriods {
		// The final period pays out the remainder, including rounding dust.
		return big.Sub(r.TotalAmount, r.ClaimedAmount), periodsElapsed
	}
	perPeriod := big.Div(r.TotalAmount, big.NewIntUnsigned(r.ClaimablePeriods))
	newPeriods := periodsElapsed - r.LastClaimedPeriod
	return big.Mul(perPeriod, big.NewIntUnsigned(newPeriods)), periodsElapsed
}

// Claims whatever the beneficiary's record has unlocked by currEpoch, returning the amount
// to transfer. Claiming again within the same period succeeds with zero.
func (st *State) Claim(beneficiary addr.Address, currEpoch abi.ChainEpoch) (abi.TokenAmount, error) {
	if st.Phase != PhaseInitialized {
		return big.Zero(), exitcode.ErrNotFound.Wrapf("vestings not started")
	}
	rec, ok := st.Records[beneficiary.String()]
	if !ok {
		return big.Zero(), exitcode.ErrNotFound.Wrapf("no vesting record for %v", beneficiary)
	}
	if rec.Status == StatusFullyClaimed {
		return big.Zero(), exitcode.ErrIllegalState.Wrapf("vesting for %v already fully claimed", beneficiary)
	}

	amount, periodsElapsed := rec.Releasable(currEpoch)
	if periodsElapsed <= rec.LastClaimedPeriod {
		return big.Zero(), nil
	}

	rec.ClaimedAmount = big.Add(rec.ClaimedAmount, amount)
	rec.LastClaimedPeriod = periodsElapsed
	if rec.ClaimedAmount.Equals(rec.TotalAmount) {
		rec.Status = StatusFullyClaimed
	}
	return amount, nil
}

// Returns the stored record of a beneficiary.
func (st *State) GetRecord(beneficiary addr.Address) (*VestingRecord, error) {
	if beneficiary == addr.Undef {
		return nil, exitcode.ErrIllegalArgument.Wrapf("invalid user address")
	}
	if st.Phase != PhaseInitialized {
		return nil, exitcode.ErrNotFound.Wrapf("vestings not started")
	}
	rec, ok := st.Records[beneficiary.String()]
	if !ok {
		return nil, exitcode.ErrNotFound.Wrapf("no vesting record for %v", beneficiary)
	}
	return rec, nil
}

// Sums of allocated and claimed amounts over all records.
func (st *State) Totals() (allocated, claimed abi.TokenAmount) {
	allocated, claimed = big.Zero(), big.Zero()
	for _, rec := range st.Records {
		allocated = big.Add(allocated, rec.TotalAmount)
		claimed = big.Add(claimed, rec.ClaimedAmount)
	}
	return allocated, claimed
}
