package stellar

import (
	"regexp"

	"github.com/stellar/go/strkey"
)

const accountIDLength = 56

var assetCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,12}$`)

// IsValidAccountID is a syntactic check only: 56 characters, a leading G and
// the base32 alphabet. It performs no checksum verification and no I/O.
func IsValidAccountID(s string) bool {
	if len(s) != accountIDLength || s[0] != 'G' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '2' && c <= '7') {
			return false
		}
	}
	return true
}

// ValidateAccountID returns an InvalidAddress error for malformed ids.
func ValidateAccountID(op, s string) error {
	if !IsValidAccountID(s) {
		return InvalidAddress(op, s)
	}
	return nil
}

// HasValidChecksum additionally decodes the strkey, verifying version byte
// and CRC. Useful for issuer accounts configured by operators.
func HasValidChecksum(s string) bool {
	return IsValidAccountID(s) && strkey.IsValidEd25519PublicKey(s)
}

// ValidateAssetCode accepts 1 to 12 alphanumeric characters.
func ValidateAssetCode(op, code string) error {
	if !assetCodePattern.MatchString(code) {
		return Validation(op, "asset code %q must be 1-12 alphanumeric characters", code)
	}
	return nil
}

// IsNativeAsset reports whether code/issuer denote lumens.
func IsNativeAsset(code, issuer string) bool {
	return issuer == "" && (code == "XLM" || code == "native")
}
