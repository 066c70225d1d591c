// Package hdwallet implements BIP-39 mnemonic handling and BIP-44 key
// derivation for the EVM chain family. Everything here is pure and
// deterministic; nothing talks to the network or logs key material.
package hdwallet

import (
	"custody/internal/errs"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy size for 12-word mnemonics.
const MnemonicEntropyBits = 128

// GenerateMnemonic creates a new 12-word BIP-39 mnemonic from CSPRNG entropy.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", errs.Wrap(errs.KindDerivation, "generate entropy", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errs.Wrap(errs.KindDerivation, "generate mnemonic", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, wordlist membership and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// DeriveSeed stretches a mnemonic into a 64-byte seed. The passphrase is
// always empty by convention; the same mnemonic always yields the same seed.
func DeriveSeed(mnemonic string) []byte {
	return bip39.NewSeed(mnemonic, "")
}
