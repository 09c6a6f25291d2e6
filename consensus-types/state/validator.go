// Package state defines the beacon state container (§3) and the
// validator-registry entry it holds one of per validator. Individual SSZ
// container framing is treated as an external concern per spec.md §1; this
// package exposes the fields and accessor/mutator methods the core
// packages (corestate/transition, corestate/epoch, forkchoice) actually
// read and write.
package state

import "github.com/syjn99/ream-sub001/consensus-types/primitives"

// FarFutureEpoch marks a validator field ("activation_epoch",
// "exit_epoch", ...) as not yet set.
const FarFutureEpoch = primitives.Epoch(^uint64(0))

// Validator is one entry of the beacon state's validator registry (§3).
type Validator struct {
	PublicKey                  [48]byte
	WithdrawalCredentials      [32]byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch primitives.Epoch
	ActivationEpoch            primitives.Epoch
	ExitEpoch                  primitives.Epoch
	WithdrawableEpoch          primitives.Epoch
}

// IsActive reports whether the validator is active at the given epoch.
func (v *Validator) IsActive(epoch primitives.Epoch) bool {
	return v.ActivationEpoch <= epoch && epoch < v.ExitEpoch
}

// IsSlashable reports whether the validator can still be slashed at epoch
// (not already slashed, and not yet withdrawable).
func (v *Validator) IsSlashable(epoch primitives.Epoch) bool {
	return !v.Slashed && v.ActivationEpoch <= epoch && epoch < v.WithdrawableEpoch
}

// IsEligibleForActivationQueue reports whether the validator may enter the
// activation queue (not yet eligible, balance at max).
func (v *Validator) IsEligibleForActivationQueue(maxEffectiveBalance uint64) bool {
	return v.ActivationEligibilityEpoch == FarFutureEpoch && v.EffectiveBalance == maxEffectiveBalance
}
