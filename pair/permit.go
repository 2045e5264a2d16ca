package pair

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
	versionHash    = crypto.Keccak256Hash([]byte("1"))
)

// Signature is a secp256k1 signature split into its components. V may be 0/1 or 27/28.
type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

// NewSignature splits a 65-byte [R || S || V] signature as produced by crypto.Sign.
func NewSignature(sig []byte) (Signature, error) {
	if len(sig) != crypto.SignatureLength {
		return Signature{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	return Signature{
		R: common.BytesToHash(sig[:32]),
		S: common.BytesToHash(sig[32:64]),
		V: sig[64],
	}, nil
}

// DomainSeparator binds permit signatures to this pair's name, chain and address.
func (p *Pair) DomainSeparator() common.Hash {
	return p.domainSeparator
}

// PermitDigest is the hash an owner signs to approve spender for value.
func (p *Pair) PermitDigest(owner, spender common.Address, value *uint256.Int, nonce, deadline uint64) common.Hash {
	structHash := crypto.Keccak256Hash(
		permitTypeHash.Bytes(),
		word(owner.Bytes()),
		word(spender.Bytes()),
		u256(value),
		u256(uint256.NewInt(nonce)),
		u256(uint256.NewInt(deadline)),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, p.domainSeparator.Bytes(), structHash.Bytes())
}

// Permit sets an allowance from an owner-signed message and consumes the owner's nonce.
func (p *Pair) Permit(owner, spender common.Address, value *uint256.Int, deadline uint64, sig Signature) error {
	return p.host.Call(func() error {
		if now := p.host.Now(); now > deadline {
			return fmt.Errorf("%w: deadline %d, now %d", ErrExpired, deadline, now)
		}
		if owner == (common.Address{}) {
			return ErrInvalidSignature
		}
		nonce := p.Nonces(owner)
		digest := p.PermitDigest(owner, spender, value, nonce, deadline)
		signer, err := recoverSigner(digest, sig)
		if err != nil {
			return err
		}
		if signer != owner {
			return fmt.Errorf("%w: recovered %s", ErrInvalidSignature, signer.Hex())
		}
		p.nonces.Set(owner, nonce+1)
		p.approve(owner, spender, value)
		return nil
	})
}

func recoverSigner(digest common.Hash, sig Signature) (common.Address, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	r := new(big.Int).SetBytes(sig.R.Bytes())
	s := new(big.Int).SetBytes(sig.S.Bytes())
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrInvalidSignature
	}
	raw := make([]byte, 0, crypto.SignatureLength)
	raw = append(raw, sig.R.Bytes()...)
	raw = append(raw, sig.S.Bytes()...)
	raw = append(raw, v)
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func domainSeparator(name string, chainID uint64, verifyingContract common.Address) common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(name)),
		versionHash.Bytes(),
		u256(uint256.NewInt(chainID)),
		word(verifyingContract.Bytes()),
	)
}

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func u256(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}
