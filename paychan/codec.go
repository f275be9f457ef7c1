package paychan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Wire format, version 1. The payload is a version byte followed by
// self-delimiting records read until the buffer is exhausted; there is no
// whole-payload length. All integers are big-endian. Per record:
//
//	id            32 bytes
//	contract      u32 length ‖ raw transaction bytes
//	refund        u32 length ‖ raw transaction bytes
//	pubkey        u8 length ‖ compressed public key (33 bytes)
//	valueToMe     u16 length ‖ magnitude bytes (non-negative big integer)
//	refundFees    u16 length ‖ magnitude bytes
//
// The active flag is deliberately absent: it is process-local state.
const payloadVersion = 1

const compressedPubKeyLen = 33

// encodeChannels serializes channels into a version-1 payload.
func encodeChannels(channels []*StoredChannel) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(payloadVersion)
	for _, ch := range channels {
		if err := encodeChannel(buf, ch); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeChannel(buf *bytes.Buffer, ch *StoredChannel) error {
	buf.Write(ch.ID[:])

	if err := writeChunk32(buf, ch.Contract.Bytes()); err != nil {
		return fmt.Errorf("paychan: encode contract: %w", err)
	}
	if err := writeChunk32(buf, ch.Refund.Bytes()); err != nil {
		return fmt.Errorf("paychan: encode refund: %w", err)
	}

	pub := ch.PubKey.Compressed()
	if len(pub) != compressedPubKeyLen {
		return fmt.Errorf("paychan: public key must be %d bytes, got %d", compressedPubKeyLen, len(pub))
	}
	buf.WriteByte(byte(len(pub)))
	buf.Write(pub)

	// Amounts are read under the record lock since the channel protocol may
	// be updating them concurrently.
	ch.mu.Lock()
	valueToMe, refundFees := ch.ValueToMe, ch.RefundFees
	ch.mu.Unlock()

	if err := writeBigInt(buf, valueToMe); err != nil {
		return fmt.Errorf("paychan: encode valueToMe: %w", err)
	}
	if err := writeBigInt(buf, refundFees); err != nil {
		return fmt.Errorf("paychan: encode refundFees: %w", err)
	}
	return nil
}

func writeChunk32(buf *bytes.Buffer, b []byte) error {
	if len(b) > math.MaxUint32 {
		return fmt.Errorf("chunk too large: %d bytes", len(b))
	}
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	buf.Write(l[:])
	buf.Write(b)
	return nil
}

func writeBigInt(buf *bytes.Buffer, v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative amount %s", v)
	}
	b := v.Bytes()
	if len(b) > math.MaxUint16 {
		return fmt.Errorf("amount too large: %d bytes", len(b))
	}
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(b)))
	buf.Write(l[:])
	buf.Write(b)
	return nil
}

// decodeChannels parses a payload produced by encodeChannels. Empty input is
// a valid empty registry, since a wallet may have no persisted payload for an
// optional extension. Restored channels start active, matching the behavior
// of a freshly constructed record; the session that wants one must
// explicitly release it with Deactivate.
func decodeChannels(data []byte) ([]*StoredChannel, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != payloadVersion {
		return nil, fmt.Errorf("%w: unsupported payload version %d", ErrCorruptPayload, data[0])
	}

	r := bytes.NewReader(data[1:])
	var channels []*StoredChannel
	for r.Len() > 0 {
		ch, err := decodeChannel(r)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func decodeChannel(r *bytes.Reader) (*StoredChannel, error) {
	var id chainhash.Hash
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, fmt.Errorf("%w: short channel id", ErrCorruptPayload)
	}

	contractBytes, err := readChunk32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: contract: %w", ErrCorruptPayload, err)
	}
	contract, err := transaction.NewTransactionFromBytes(contractBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse contract: %w", ErrCorruptPayload, err)
	}

	refundBytes, err := readChunk32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: refund: %w", ErrCorruptPayload, err)
	}
	refund, err := transaction.NewTransactionFromBytes(refundBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse refund: %w", ErrCorruptPayload, err)
	}

	pubLen, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: short public key length", ErrCorruptPayload)
	}
	pubBytes := make([]byte, int(pubLen))
	if _, err := io.ReadFull(r, pubBytes); err != nil {
		return nil, fmt.Errorf("%w: short public key", ErrCorruptPayload)
	}
	pub, err := ec.PublicKeyFromBytes(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %w", ErrCorruptPayload, err)
	}

	valueToMe, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("%w: valueToMe: %w", ErrCorruptPayload, err)
	}
	refundFees, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("%w: refundFees: %w", ErrCorruptPayload, err)
	}

	return &StoredChannel{
		ID:         id,
		Contract:   contract,
		Refund:     refund,
		PubKey:     pub,
		ValueToMe:  valueToMe,
		RefundFees: refundFees,
		active:     true,
	}, nil
}

func readChunk32(r *bytes.Reader) ([]byte, error) {
	var l [4]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, fmt.Errorf("short length prefix")
	}
	n := binary.BigEndian.Uint32(l[:])
	if uint64(n) > uint64(r.Len()) {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("short chunk")
	}
	return b, nil
}

func readBigInt(r *bytes.Reader) (*big.Int, error) {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, fmt.Errorf("short length prefix")
	}
	n := binary.BigEndian.Uint16(l[:])
	if int(n) > r.Len() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("short amount")
	}
	return new(big.Int).SetBytes(b), nil
}
