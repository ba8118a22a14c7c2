package deploy

import (
	"errors"
	"math/big"
	"strings"
)

// baseUnitZeros is the token's decimals: 1 token is 10^18 base units.
const baseUnitZeros = "000000000000000000"

// ErrInvalidPremint is returned for premint input that is not a decimal
// digit string or whose scaled value does not fit in a uint256.
var ErrInvalidPremint = errors.New("deploy: premint must be a non-negative integer")

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ScalePremint converts a whole-token amount into base units by appending 18
// zero digits to the input text. Leading zeros are kept; the value itself is
// only parsed to enforce the uint256 bound.
func ScalePremint(input string) (string, error) {
	digits := strings.TrimSpace(input)
	if digits == "" {
		return "", ErrInvalidPremint
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", ErrInvalidPremint
		}
	}
	scaled := digits + baseUnitZeros

	n, ok := new(big.Int).SetString(scaled, 10)
	if !ok || n.Cmp(maxUint256) > 0 {
		return "", ErrInvalidPremint
	}
	return scaled, nil
}
