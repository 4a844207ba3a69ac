package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Layout sizes in bytes. The account is allocated for both options present;
// an absent option is a single tag byte and the tail stays zero.
const (
	DiscriminatorSize = 8
	optionU64Size     = 1 + 8
	StrategySize      = 1 + PublicKeySize + PublicKeySize + 8 + 8 + 2 + 8 + optionU64Size + optionU64Size
	BotRecordSize     = DiscriminatorSize + PublicKeySize + 1 + StrategySize + 8*5 + 1
)

var botRecordDiscriminator = AccountDiscriminator("TradingBot")

// AccountDiscriminator is the 8-byte type tag prefixed to account data.
func AccountDiscriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// EncodeBotRecord borsh-encodes the record after its discriminator into a
// zero-filled buffer of exactly BotRecordSize bytes.
func EncodeBotRecord(r *BotRecord) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidAccountData)
	}
	if !r.Strategy.Type.Valid() {
		return nil, ErrInvalidStrategy
	}
	w := &layoutWriter{buf: make([]byte, BotRecordSize)}
	w.bytes(botRecordDiscriminator[:])
	w.bytes(r.Authority[:])
	w.boolean(r.IsActive)
	w.strategy(r.Strategy)
	w.u64(r.Balance)
	w.u64(r.TotalTrades)
	w.u64(r.SuccessfulTrades)
	w.i64(r.LastTradeTimestamp)
	w.i64(r.CreatedAt)
	w.u8(r.Bump)
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// DecodeBotRecord reads a record from account data. Trailing bytes past the
// layout are ignored.
func DecodeBotRecord(data []byte) (*BotRecord, error) {
	if len(data) < BotRecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrAccountDataTooSmall, len(data))
	}
	rd := &layoutReader{buf: data}
	var disc [DiscriminatorSize]byte
	copy(disc[:], rd.bytes(DiscriminatorSize))
	if disc != botRecordDiscriminator {
		return nil, fmt.Errorf("%w: discriminator mismatch", ErrInvalidAccountData)
	}
	r := &BotRecord{}
	copy(r.Authority[:], rd.bytes(PublicKeySize))
	r.IsActive = rd.boolean()
	r.Strategy = rd.strategy()
	r.Balance = rd.u64()
	r.TotalTrades = rd.u64()
	r.SuccessfulTrades = rd.u64()
	r.LastTradeTimestamp = rd.i64()
	r.CreatedAt = rd.i64()
	r.Bump = rd.u8()
	if rd.err != nil {
		return nil, rd.err
	}
	return r, nil
}

type layoutWriter struct {
	buf []byte
	off int
	err error
}

func (w *layoutWriter) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.off+n > len(w.buf) {
		w.err = ErrAccountDataTooSmall
		return nil
	}
	out := w.buf[w.off : w.off+n]
	w.off += n
	return out
}

func (w *layoutWriter) bytes(b []byte) {
	if dst := w.reserve(len(b)); dst != nil {
		copy(dst, b)
	}
}

func (w *layoutWriter) u8(v uint8) {
	if dst := w.reserve(1); dst != nil {
		dst[0] = v
	}
}

func (w *layoutWriter) boolean(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *layoutWriter) u16(v uint16) {
	if dst := w.reserve(2); dst != nil {
		binary.LittleEndian.PutUint16(dst, v)
	}
}

func (w *layoutWriter) u64(v uint64) {
	if dst := w.reserve(8); dst != nil {
		binary.LittleEndian.PutUint64(dst, v)
	}
}

func (w *layoutWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *layoutWriter) optU64(v *uint64) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(*v)
}

func (w *layoutWriter) strategy(s Strategy) {
	w.u8(uint8(s.Type))
	w.bytes(s.TokenA[:])
	w.bytes(s.TokenB[:])
	w.u64(s.BuyThreshold)
	w.u64(s.SellThreshold)
	w.u16(s.MaxSlippage)
	w.u64(s.TradeAmount)
	w.optU64(s.StopLoss)
	w.optU64(s.TakeProfit)
}

type layoutReader struct {
	buf []byte
	off int
	err error
}

func (r *layoutReader) bytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.off+n > len(r.buf) {
		r.err = ErrAccountDataTooSmall
		return make([]byte, n)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *layoutReader) u8() uint8 { return r.bytes(1)[0] }

func (r *layoutReader) boolean() bool {
	switch v := r.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: bool byte %d", ErrInvalidAccountData, v)
		}
		return false
	}
}

func (r *layoutReader) u16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }

func (r *layoutReader) u64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }

func (r *layoutReader) i64() int64 { return int64(r.u64()) }

func (r *layoutReader) optU64() *uint64 {
	switch tag := r.u8(); tag {
	case 0:
		return nil
	case 1:
		v := r.u64()
		return &v
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: option tag %d", ErrInvalidAccountData, tag)
		}
		return nil
	}
}

func (r *layoutReader) strategy() Strategy {
	var s Strategy
	s.Type = StrategyType(r.u8())
	if !s.Type.Valid() && r.err == nil {
		r.err = fmt.Errorf("%w: strategy byte %d", ErrInvalidStrategy, uint8(s.Type))
	}
	copy(s.TokenA[:], r.bytes(PublicKeySize))
	copy(s.TokenB[:], r.bytes(PublicKeySize))
	s.BuyThreshold = r.u64()
	s.SellThreshold = r.u64()
	s.MaxSlippage = r.u16()
	s.TradeAmount = r.u64()
	s.StopLoss = r.optU64()
	s.TakeProfit = r.optU64()
	return s
}
