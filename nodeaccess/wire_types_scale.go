package nodeaccess

import (
	"github.com/spacemeshos/go-scale"
)

func (t *Request) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeCompact8(enc, uint8(t.Kind))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, t.Index)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *Request) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeCompact8(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Kind = Kind(field)
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Index = field
	}
	return total, nil
}

func (t *HashResponse) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeUint64(enc, t.Hash)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *HashResponse) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		t.Hash = field
	}
	return total, nil
}
