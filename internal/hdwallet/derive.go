package hdwallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"custody/internal/errs"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// BIP-44 path segments for m/44'/60'/0'/0/{index}.
const (
	purposeBIP44  = 44
	coinTypeEther = 60
)

// maxIndexRetries bounds how many invalid child indexes DeriveAccount skips
// before giving up. Invalid children are astronomically rare per BIP-32.
const maxIndexRetries = 8

// KeyPair is one derived node of the HD tree. Index is the index actually
// used, which may be higher than requested if an invalid child was skipped.
type KeyPair struct {
	Path       string
	Index      uint32
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// PrivateKeyHex encodes the private key for storage lookup. Callers must
// treat the result as secret material.
func (kp *KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(kp.PrivateKey))
}

// DeriveRoot builds the BIP-32 master node from a seed.
func DeriveRoot(seed []byte) (*hdkeychain.ExtendedKey, error) {
	root, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errs.Wrap(errs.KindDerivation, "derive master key", err)
	}
	return root, nil
}

// DeriveAccount walks m/44'/60'/0'/0/{index} and returns the child keypair.
// If the child at index is invalid it bumps the index and retries; it never
// returns a zero or unverified key.
func DeriveAccount(root *hdkeychain.ExtendedKey, index uint32) (*KeyPair, error) {
	branch, err := deriveBranch(root)
	if err != nil {
		return nil, err
	}

	for i := index; i < index+maxIndexRetries; i++ {
		child, err := branch.Derive(i)
		if errors.Is(err, hdkeychain.ErrInvalidChild) {
			continue
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindDerivation, fmt.Sprintf("derive child %d", i), err)
		}
		return keyPairFromChild(child, i)
	}
	return nil, errs.Newf(errs.KindDerivation, "no usable child key near index %d", index)
}

// deriveBranch derives the fixed m/44'/60'/0'/0 prefix. Invalid children on
// the hardened prefix abort: there is no index to bump without changing the
// meaning of the path.
func deriveBranch(root *hdkeychain.ExtendedKey) (*hdkeychain.ExtendedKey, error) {
	steps := []uint32{
		hdkeychain.HardenedKeyStart + purposeBIP44,
		hdkeychain.HardenedKeyStart + coinTypeEther,
		hdkeychain.HardenedKeyStart, // account 0'
		0,                           // external chain
	}

	key := root
	for _, step := range steps {
		var err error
		key, err = key.Derive(step)
		if err != nil {
			return nil, errs.Wrap(errs.KindDerivation, "derive path prefix", err)
		}
	}
	return key, nil
}

func keyPairFromChild(child *hdkeychain.ExtendedKey, index uint32) (*KeyPair, error) {
	ecPriv, err := child.ECPrivKey()
	if err != nil {
		return nil, errs.Wrap(errs.KindDerivation, "extract private key", err)
	}

	priv := ecPriv.ToECDSA()
	if priv.D.Sign() == 0 {
		return nil, errs.New(errs.KindDerivation, "derived key is zero")
	}

	return &KeyPair{
		Path:       fmt.Sprintf("m/44'/60'/0'/0/%d", index),
		Index:      index,
		PrivateKey: priv,
		Address:    DeriveAddress(ecPriv.PubKey()),
	}, nil
}

// DeriveAddress applies the EVM address encoding to a secp256k1 public key.
func DeriveAddress(pub *btcec.PublicKey) common.Address {
	return crypto.PubkeyToAddress(*pub.ToECDSA())
}

// AccountFromMnemonic validates a phrase and derives the keypair at index.
// Same phrase in, same address out, which is what makes duplicate detection
// on import possible.
func AccountFromMnemonic(mnemonic string, index uint32) (*KeyPair, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, errs.New(errs.KindInvalidInput, "invalid mnemonic phrase")
	}
	root, err := DeriveRoot(DeriveSeed(mnemonic))
	if err != nil {
		return nil, err
	}
	return DeriveAccount(root, index)
}
