package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// ParseEther converts a decimal ether amount (e.g. "0.01") to wei
func ParseEther(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", value)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative ether amount %q", value)
	}

	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %q has more than %d decimals", value, etherDecimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

// ParseWei parses a non-negative base-10 wei amount
func ParseWei(value string) (*big.Int, error) {
	wei, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount %q", value)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("negative wei amount %q", value)
	}
	return wei, nil
}

// FormatEther formats a wei amount as ether without trailing zeros (600000000000000000 -> "0.6")
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := fmt.Sprintf("%0*s", etherDecimals, frac.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), fracStr)
}

// ShortAddress abbreviates an address for display (0xAbCd…1234)
func ShortAddress(address common.Address) string {
	hex := address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}
