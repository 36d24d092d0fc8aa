package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrInvalidAmount = errors.New("invalid token amount")

const transferABI = `[{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(transferABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Token is an ERC-20 token tips are denominated in. Amounts are carried
// through the system as int64 micro units (10^-6 of a whole token) and only
// rendered as decimal strings at API boundaries.
type Token struct {
	Address  common.Address
	Decimals uint8
}

const microDecimals = 6

// ParseAmount converts a positive decimal string ("0.10") to micro units.
// More than six fractional digits, signs, and non-numeric input are rejected.
func (t Token) ParseAmount(s string) (int64, error) {
	micros, err := parseMicros(s)
	if err != nil {
		return 0, err
	}
	if micros <= 0 {
		return 0, ErrInvalidAmount
	}
	return micros, nil
}

// ParseTotal parses an accumulated total, which unlike a single tip may
// legitimately be zero ("0.000000" on an untipped post).
func (t Token) ParseTotal(s string) (int64, error) {
	return parseMicros(s)
}

func parseMicros(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") || len(fracPart) > microDecimals {
		return 0, ErrInvalidAmount
	}
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, ErrInvalidAmount
	}

	v := new(big.Int)
	if intPart != "" {
		if _, ok := v.SetString(intPart, 10); !ok {
			return 0, ErrInvalidAmount
		}
	}
	v.Mul(v, big.NewInt(1_000_000))
	for i, c := range fracPart {
		digit := int64(c-'0') * pow10(microDecimals-1-i)
		v.Add(v, big.NewInt(digit))
	}
	if !v.IsInt64() {
		return 0, ErrInvalidAmount
	}
	return v.Int64(), nil
}

// FormatAmount renders micro units as a decimal string with six places.
func (t Token) FormatAmount(micros int64) string {
	return fmt.Sprintf("%d.%06d", micros/1_000_000, micros%1_000_000)
}

// SmallestUnits scales micro units to the token's own smallest unit.
func (t Token) SmallestUnits(micros int64) (*big.Int, error) {
	if t.Decimals < microDecimals {
		return nil, fmt.Errorf("token with %d decimals cannot represent micro amounts", t.Decimals)
	}
	v := big.NewInt(micros)
	for i := microDecimals; i < int(t.Decimals); i++ {
		v.Mul(v, big.NewInt(10))
	}
	return v, nil
}

// TransferCalldata packs an ERC-20 transfer(to, value) call.
func (t Token) TransferCalldata(to common.Address, micros int64) ([]byte, error) {
	value, err := t.SmallestUnits(micros)
	if err != nil {
		return nil, err
	}
	return erc20ABI.Pack("transfer", to, value)
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
