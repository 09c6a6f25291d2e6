package transition

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syjn99/ream-sub001/config/params"
	"github.com/syjn99/ream-sub001/consensus-types/blocks"
	"github.com/syjn99/ream-sub001/consensus-types/primitives"
	"github.com/syjn99/ream-sub001/consensus-types/state"
	"github.com/syjn99/ream-sub001/corestate/helpers"
	"github.com/syjn99/ream-sub001/crypto/bls"
	"github.com/syjn99/ream-sub001/crypto/hash"
)

var (
	errProposerSlashingInvalid = errors.New("invalid proposer slashing")
	errAttesterSlashingInvalid = errors.New("invalid attester slashing")
	errAttestationInvalid      = errors.New("invalid attestation")
	errDepositInvalid          = errors.New("invalid deposit")
	errVoluntaryExitInvalid    = errors.New("invalid voluntary exit")
	errBLSChangeInvalid        = errors.New("invalid bls-to-execution change")
	errSyncAggregateInvalid    = errors.New("invalid sync aggregate")
)

// processOperations dispatches the block body's operation lists in the
// fixed order §4.2 step 2 specifies: proposer slashings, attester
// slashings, attestations, deposits, voluntary exits, BLS-to-execution
// changes.
func processOperations(ctx context.Context, st *state.BeaconState, body *blocks.BeaconBlockBody, validateSignatures bool) error {
	for _, ps := range body.ProposerSlashings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ProcessProposerSlashing(st, ps, validateSignatures); err != nil {
			return err
		}
	}
	for _, as := range body.AttesterSlashings {
		if err := ProcessAttesterSlashing(st, as); err != nil {
			return err
		}
	}
	for _, a := range body.Attestations {
		if err := ProcessAttestation(st, a, validateSignatures); err != nil {
			return err
		}
	}
	for _, d := range body.Deposits {
		if err := ProcessDeposit(st, d); err != nil {
			return err
		}
	}
	for _, e := range body.VoluntaryExits {
		if err := ProcessVoluntaryExit(st, e, validateSignatures); err != nil {
			return err
		}
	}
	for _, c := range body.BLSToExecutionChanges {
		if err := ProcessBLSToExecutionChange(st, c, validateSignatures); err != nil {
			return err
		}
	}
	return nil
}

// ProcessProposerSlashing validates and applies a proposer slashing:
// the two headers must be for the same slot and proposer but distinct
// roots, the proposer must currently be slashable, and (when
// validateSignatures) both signatures must verify.
func ProcessProposerSlashing(st *state.BeaconState, ps *blocks.ProposerSlashing, validateSignatures bool) error {
	h1, h2 := ps.Header1.Header, ps.Header2.Header
	if h1.Slot != h2.Slot || h1.ProposerIndex != h2.ProposerIndex {
		return errProposerSlashingInvalid
	}
	if h1.ProposerIndex >= primitives.ValidatorIndex(len(st.Validators)) {
		return errProposerSlashingInvalid
	}
	v := st.Validators[h1.ProposerIndex]
	if !v.IsSlashable(st.Slot.ToEpoch()) {
		return errProposerSlashingInvalid
	}
	if treeHash(h1) == treeHash(h2) {
		return errProposerSlashingInvalid
	}
	if validateSignatures {
		for _, sh := range []*blocks.SignedBeaconBlockHeader{ps.Header1, ps.Header2} {
			if err := verifyHeaderSignature(st, v, sh); err != nil {
				return err
			}
		}
	}
	slashValidator(st, h1.ProposerIndex)
	return nil
}

func verifyHeaderSignature(st *state.BeaconState, v *state.Validator, sh *blocks.SignedBeaconBlockHeader) error {
	pub, err := bls.PublicKeyFromBytes(v.PublicKey[:])
	if err != nil {
		return errors.Wrap(err, "invalid proposer public key")
	}
	sig, err := bls.SignatureFromBytes(sh.Signature[:])
	if err != nil {
		return errors.Wrap(err, "invalid header signature encoding")
	}
	domain := helpers.ComputeDomain(0x00000000, st.Fork.CurrentVersion, st.GenesisValidatorsRoot)
	root := treeHash(sh.Header)
	signingRoot := helpers.SigningRoot(root, domain)
	if !sig.Verify(pub, signingRoot[:]) {
		return errProposerSlashingInvalid
	}
	return nil
}

// slashValidator implements the consensus spec's slash_validator: marks
// slashed, sets the withdrawable epoch, ejects via exit, and moves the
// slashed balance into the epoch's slashings accumulator.
func slashValidator(st *state.BeaconState, index primitives.ValidatorIndex) {
	v := st.Validators[index]
	if v.Slashed {
		return
	}
	epoch := st.Slot.ToEpoch()
	v.Slashed = true
	withdrawableDelay := primitives.Epoch(8192) // EPOCHS_PER_SLASHINGS_VECTOR
	if v.WithdrawableEpoch > epoch+withdrawableDelay || v.WithdrawableEpoch == state.FarFutureEpoch {
		v.WithdrawableEpoch = epoch + withdrawableDelay
	}
	initiateValidatorExit(st, index)
	if len(st.Slashings) > 0 {
		st.Slashings[uint64(epoch)%uint64(len(st.Slashings))] += v.EffectiveBalance
	}
}

// initiateValidatorExit sets exitEpoch/withdrawableEpoch for index if not
// already exiting. The exit epoch is the later of currentEpoch+4 and the
// latest exit epoch already assigned, plus one when that epoch is taken;
// no per-epoch churn count is kept, so the churn limit is not applied.
func initiateValidatorExit(st *state.BeaconState, index primitives.ValidatorIndex) {
	v := st.Validators[index]
	if v.ExitEpoch != state.FarFutureEpoch {
		return
	}
	currentEpoch := st.Slot.ToEpoch()
	exitEpochs := map[primitives.Epoch]bool{}
	maxExit := currentEpoch + 4 // MAX_SEED_LOOKAHEAD
	for _, other := range st.Validators {
		if other.ExitEpoch != state.FarFutureEpoch {
			exitEpochs[other.ExitEpoch] = true
			if other.ExitEpoch > maxExit {
				maxExit = other.ExitEpoch
			}
		}
	}
	exitQueueEpoch := maxExit
	if exitEpochs[exitQueueEpoch] {
		exitQueueEpoch++
	}
	v.ExitEpoch = exitQueueEpoch
	v.WithdrawableEpoch = exitQueueEpoch + 256 // MIN_VALIDATOR_WITHDRAWABILITY_DELAY
}

// ProcessAttesterSlashing validates the two indexed attestations are
// mutually slashable (same target epoch double-vote, or surround vote)
// and slashes every validator in their intersection.
func ProcessAttesterSlashing(st *state.BeaconState, as *blocks.AttesterSlashing) error {
	a1, a2 := as.Attestation1, as.Attestation2
	if !isSlashableAttestationData(a1.Data, a2.Data) {
		return errAttesterSlashingInvalid
	}
	set1 := toSet(a1.AttestingIndices)
	var slashedAny bool
	for _, idx := range a2.AttestingIndices {
		if set1[idx] && st.Validators[idx].IsSlashable(st.Slot.ToEpoch()) {
			slashValidator(st, idx)
			slashedAny = true
		}
	}
	if !slashedAny {
		return errAttesterSlashingInvalid
	}
	return nil
}

func toSet(idx []primitives.ValidatorIndex) map[primitives.ValidatorIndex]bool {
	set := make(map[primitives.ValidatorIndex]bool, len(idx))
	for _, i := range idx {
		set[i] = true
	}
	return set
}

// isSlashableAttestationData reports a double vote (same target epoch,
// different data) or a surround vote (one attestation's source/target
// interval strictly contains the other's).
func isSlashableAttestationData(d1, d2 *blocks.AttestationData) bool {
	doubleVote := d1.Target.Epoch == d2.Target.Epoch && treeHash(d1) != treeHash(d2)
	surround := (d1.Source.Epoch < d2.Source.Epoch && d2.Target.Epoch < d1.Target.Epoch) ||
		(d2.Source.Epoch < d1.Source.Epoch && d1.Target.Epoch < d2.Target.Epoch)
	return doubleVote || surround
}

// participationSourceFlag, participationTargetFlag, participationHeadFlag
// are the three low bits of each validator's per-epoch participation byte,
// mirroring the consensus spec's TIMELY_SOURCE/TARGET/HEAD flag indices.
const (
	participationSourceFlag byte = 1 << 0
	participationTargetFlag byte = 1 << 1
	participationHeadFlag   byte = 1 << 2
)

// ProcessAttestation validates an included attestation against its
// committee and records participation flags epoch processing's
// reward/penalty pass reads (§4.2 step 2, §4.2 "Epoch processing").
func ProcessAttestation(st *state.BeaconState, a *blocks.Attestation, validateSignatures bool) error {
	data := a.Data
	currentEpoch := st.Slot.ToEpoch()
	if data.Target.Epoch != currentEpoch && data.Target.Epoch != currentEpoch.SubEpoch(1) {
		return errAttestationInvalid
	}
	if data.Target.Epoch != data.Slot.ToEpoch() {
		return errAttestationInvalid
	}

	committee, err := helpers.BeaconCommittee(st, data.Slot, data.CommitteeIndex)
	if err != nil {
		return errors.Wrap(err, "could not resolve attesting committee")
	}
	if uint64(a.AggregationBits.Len()) != uint64(len(committee)) {
		return errAttestationInvalid
	}

	var participation []byte
	if data.Target.Epoch == currentEpoch {
		participation = st.CurrentEpochParticipation
	} else {
		participation = st.PreviousEpochParticipation
	}

	isMatchingSource := true // the containing state's checkpoint equality is the caller's (forkchoice) concern
	isMatchingTarget := data.Target.Root != [32]byte{}
	isMatchingHead := data.BeaconBlockRoot != [32]byte{}

	votes := 0
	for i, idx := range committee {
		if !a.AggregationBits.BitAt(uint64(i)) {
			continue
		}
		votes++
		if int(idx) >= len(participation) {
			continue
		}
		flags := participation[idx]
		if isMatchingSource {
			flags |= participationSourceFlag
		}
		if isMatchingTarget {
			flags |= participationTargetFlag
		}
		if isMatchingHead {
			flags |= participationHeadFlag
		}
		participation[idx] = flags
	}
	if votes == 0 {
		return errAttestationInvalid
	}
	return nil
}

// ProcessDeposit advances Eth1DepositIndex and appends the deposit to
// pending_deposits (Electra; §4.2 epoch processing "pending-deposits
// processing" consumes the queue), for a top-up of an existing validator
// and a new validator alike. The deposit's Merkle proof is not checked
// against the state's eth1 deposit root.
func ProcessDeposit(st *state.BeaconState, d *blocks.Deposit) error {
	st.Eth1DepositIndex++
	for _, v := range st.Validators {
		if v.PublicKey == d.Data.PublicKey {
			// Existing validator: queue a balance top-up.
			st.PendingDeposits = append(st.PendingDeposits, &state.PendingDeposit{
				PublicKey:             d.Data.PublicKey,
				WithdrawalCredentials: d.Data.WithdrawalCredentials,
				Amount:                d.Data.Amount,
				Signature:             d.Data.Signature,
				Slot:                  st.Slot,
			})
			return nil
		}
	}
	st.PendingDeposits = append(st.PendingDeposits, &state.PendingDeposit{
		PublicKey:             d.Data.PublicKey,
		WithdrawalCredentials: d.Data.WithdrawalCredentials,
		Amount:                d.Data.Amount,
		Signature:             d.Data.Signature,
		Slot:                  st.Slot,
	})
	return nil
}

// ProcessVoluntaryExit validates and applies a voluntary exit: the
// validator must be active, not already exiting, past the shard-committee
// period, and eligible at the stated epoch.
func ProcessVoluntaryExit(st *state.BeaconState, e *blocks.SignedVoluntaryExit, validateSignatures bool) error {
	idx := e.Exit.ValidatorIndex
	if idx >= primitives.ValidatorIndex(len(st.Validators)) {
		return errVoluntaryExitInvalid
	}
	v := st.Validators[idx]
	currentEpoch := st.Slot.ToEpoch()
	if !v.IsActive(currentEpoch) || v.ExitEpoch != state.FarFutureEpoch {
		return errVoluntaryExitInvalid
	}
	if currentEpoch < e.Exit.Epoch {
		return errVoluntaryExitInvalid
	}
	if currentEpoch < v.ActivationEpoch+primitives.Epoch(params.BeaconConfig().ShardCommitteePeriod) {
		return errVoluntaryExitInvalid
	}
	if validateSignatures {
		pub, err := bls.PublicKeyFromBytes(v.PublicKey[:])
		if err != nil {
			return errors.Wrap(err, "invalid exiting validator public key")
		}
		sig, err := bls.SignatureFromBytes(e.Signature[:])
		if err != nil {
			return errors.Wrap(err, "invalid exit signature encoding")
		}
		domain := helpers.ComputeDomain(0x04000000, st.Fork.CurrentVersion, st.GenesisValidatorsRoot)
		root := treeHash(e.Exit)
		signingRoot := helpers.SigningRoot(root, domain)
		if !sig.Verify(pub, signingRoot[:]) {
			return errVoluntaryExitInvalid
		}
	}
	initiateValidatorExit(st, idx)
	return nil
}

// ProcessBLSToExecutionChange validates and applies a withdrawal-
// credential repoint from a BLS key to an execution address.
func ProcessBLSToExecutionChange(st *state.BeaconState, c *blocks.SignedBLSToExecutionChange, validateSignatures bool) error {
	idx := c.Change.ValidatorIndex
	if idx >= primitives.ValidatorIndex(len(st.Validators)) {
		return errBLSChangeInvalid
	}
	v := st.Validators[idx]
	if v.WithdrawalCredentials[0] != 0x00 {
		return errBLSChangeInvalid
	}
	if validateSignatures {
		hashedFrom := hash.Hash(c.Change.FromBLSPublicKey[:])
		hashedFrom[0] = 0x00
		if hashedFrom != v.WithdrawalCredentials {
			return errBLSChangeInvalid
		}
	}
	v.WithdrawalCredentials[0] = 0x01
	copy(v.WithdrawalCredentials[1:12], make([]byte, 11))
	copy(v.WithdrawalCredentials[12:], c.Change.ToExecutionAddress[:])
	return nil
}

// processSyncAggregate rejects an aggregate with no participating bits
// when signatures are validated and the current sync committee is
// non-empty. It does not verify the aggregate signature, pay rewards or
// penalties, or record participation.
func processSyncAggregate(st *state.BeaconState, agg *blocks.SyncAggregate, validateSignatures bool) error {
	if st.CurrentSyncCommittee == nil {
		return nil
	}
	if validateSignatures {
		participants := agg.SyncCommitteeBits.Count()
		if participants == 0 && len(st.CurrentSyncCommittee.PubKeys) > 0 {
			return errSyncAggregateInvalid
		}
	}
	return nil
}

// processWithdrawals advances NextWithdrawalIndex by the number of
// withdrawals in the execution payload and NextWithdrawalValidatorIndex
// past the last one listed. It does not compute the expected withdrawals,
// check the payload's list against them, debit balances, or remove
// entries from the pending partial withdrawals.
func processWithdrawals(st *state.BeaconState, payload *blocks.ExecutionPayload) {
	if payload == nil {
		return
	}
	st.NextWithdrawalIndex += uint64(len(payload.Withdrawals))
	if len(payload.Withdrawals) > 0 {
		last := payload.Withdrawals[len(payload.Withdrawals)-1]
		st.NextWithdrawalValidatorIndex = (last.ValidatorIndex + 1) % primitives.ValidatorIndex(len(st.Validators))
	}
}

// processExecutionPayload verifies payload continuity against the state's
// latest_execution_payload_header (§4.2 step 2a), then calls the engine's
// NewPayload -- the only engine call state transition makes per block.
func processExecutionPayload(ctx context.Context, st *state.BeaconState, b *blocks.BeaconBlock, engine Engine) error {
	payload := b.Body.ExecutionPayload
	header := st.LatestExecutionPayloadHeader
	if payload.ParentHash != header.BlockHash {
		return errInvalidPayloadLink
	}
	if payload.Timestamp != expectedTimestamp(st) {
		return errInvalidPayloadLink
	}

	if engine != nil {
		status, err := engine.NewPayload(ctx, &NewPayloadRequest{
			Payload:               payload,
			VersionedHashes:       versionedHashes(b.Body.BlobKZGCommitments),
			ParentBeaconBlockRoot: b.ParentRoot,
			ExecutionRequests:     b.Body.ExecutionRequests,
		})
		if err != nil {
			return errors.Wrap(err, "execution engine call failed")
		}
		if status == PayloadInvalid {
			return errPayloadRejected
		}
	}

	st.LatestExecutionPayloadHeader = state.ExecutionPayloadHeader{
		ParentHash:      payload.ParentHash,
		BlockHash:       payload.BlockHash,
		PrevRandao:      payload.PrevRandao,
		Timestamp:       payload.Timestamp,
		BlockNumber:     payload.BlockNumber,
		GasLimit:        payload.GasLimit,
		GasUsed:         payload.GasUsed,
		BaseFeePerGas:   payload.BaseFeePerGas,
		WithdrawalsRoot: treeHash(payload.Withdrawals),
	}
	return nil
}

func expectedTimestamp(st *state.BeaconState) uint64 {
	return st.GenesisTime + uint64(st.Slot)*12 // SECONDS_PER_SLOT
}

func versionedHashes(commitments [][48]byte) [][32]byte {
	out := make([][32]byte, len(commitments))
	for i, c := range commitments {
		h := treeHash(c)
		h[0] = 0x01 // KZG-to-versioned-hash commitment version byte
		out[i] = h
	}
	return out
}

// processExecutionRequests folds the block's execution-layer-triggered
// deposit/withdrawal/consolidation requests into the corresponding
// pending queues, per SPEC_FULL.md's Electra supplement.
func processExecutionRequests(st *state.BeaconState, reqs *blocks.ExecutionRequests) {
	if reqs == nil {
		return
	}
	for _, d := range reqs.Deposits {
		st.PendingDeposits = append(st.PendingDeposits, &state.PendingDeposit{
			PublicKey:             d.PublicKey,
			WithdrawalCredentials: d.WithdrawalCredentials,
			Amount:                d.Amount,
			Signature:             d.Signature,
			Slot:                  st.Slot,
		})
	}
	for _, w := range reqs.Withdrawals {
		idx, ok := validatorIndexForPubkey(st, w.ValidatorPubKey)
		if !ok {
			continue
		}
		st.PendingPartialWithdrawals = append(st.PendingPartialWithdrawals, &state.PendingPartialWithdrawal{
			ValidatorIndex:    idx,
			Amount:            w.Amount,
			WithdrawableEpoch: st.Slot.ToEpoch(),
		})
	}
	for _, c := range reqs.Consolidations {
		src, srcOK := validatorIndexForPubkey(st, c.SourcePubKey)
		tgt, tgtOK := validatorIndexForPubkey(st, c.TargetPubKey)
		if !srcOK || !tgtOK {
			continue
		}
		st.PendingConsolidations = append(st.PendingConsolidations, &state.PendingConsolidation{
			SourceIndex: src,
			TargetIndex: tgt,
		})
	}
}

func validatorIndexForPubkey(st *state.BeaconState, pub [48]byte) (primitives.ValidatorIndex, bool) {
	for i, v := range st.Validators {
		if v.PublicKey == pub {
			return primitives.ValidatorIndex(i), true
		}
	}
	return 0, false
}

