package models

// KeySpec names the symmetric key spec requested from the key management
// service. The values match the AWS KMS wire format; the Vault backend maps
// them to bit lengths.
type KeySpec string

const (
	// KeySpecAES128 requests a 128-bit AES-equivalent data key. This is the
	// spec used for every envelope token.
	KeySpecAES128 KeySpec = "AES_128"
)

// Bits returns the key length in bits.
func (s KeySpec) Bits() int {
	switch s {
	case KeySpecAES128:
		return 128
	default:
		return 0
	}
}

// DataKey is a per-token symmetric secret in both of its forms. Plaintext
// exists only transiently in memory; Ciphertext is the only form that is
// ever persisted (inside the token's kct header).
type DataKey struct {
	Plaintext  []byte
	Ciphertext []byte
}

// Wipe zeroes the plaintext in place. Call it as soon as the signing or
// verification step that owns the key is done with it.
func (k *DataKey) Wipe() {
	for i := range k.Plaintext {
		k.Plaintext[i] = 0
	}
}
