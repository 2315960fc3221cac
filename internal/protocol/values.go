package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AsAddress converts an unpacked ABI value to an address.
func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

// AsAddresses converts an unpacked address[] value.
func AsAddresses(value interface{}) ([]common.Address, error) {
	v, ok := value.([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unsupported address list type %T", value)
	}
	out := make([]common.Address, len(v))
	copy(out, v)
	return out, nil
}

// AsBigInt converts an unpacked ABI integer to a fresh *big.Int.
func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// AsUint64 converts an unpacked ABI integer that must fit in 64 bits.
func AsUint64(value interface{}) (uint64, error) {
	n, err := AsBigInt(value)
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("uint64 overflow: %s", n.String())
	}
	return n.Uint64(), nil
}

// AsUint8 converts an unpacked ABI value to uint8.
func AsUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

// AsString converts an unpacked ABI string.
func AsString(value interface{}) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unsupported string type %T", value)
	}
	return v, nil
}
