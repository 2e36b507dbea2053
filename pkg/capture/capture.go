// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

// Package capture records bus traffic as a stream of CBOR records so a
// session can be inspected or replayed offline.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Records keep full timestamp precision; the default unix-seconds time
// encoding would truncate inter-frame spacing.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: bad encoder options: %v", err))
	}
}

// Traffic direction of one record.
const (
	DirTx = "tx"
	DirRx = "rx"
)

// Record is one captured frame. Data holds the raw wire bytes; for rx
// records the decode fields carry what the parser made of them.
type Record struct {
	Time time.Time `cbor:"1,keyasint"`
	Dir  string    `cbor:"2,keyasint"`
	Data []byte    `cbor:"3,keyasint"`

	// Decoded summary, zero-valued for tx records.
	ID          uint8  `cbor:"4,keyasint,omitempty"`
	Instruction uint8  `cbor:"5,keyasint,omitempty"`
	Error       uint8  `cbor:"6,keyasint,omitempty"`
	ParseError  string `cbor:"7,keyasint,omitempty"`
}

// Writer appends records to a CBOR stream.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter wraps w in a capture stream writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: encMode.NewEncoder(w)}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	if rec.Dir != DirTx && rec.Dir != DirRx {
		return fmt.Errorf("invalid capture direction %q", rec.Dir)
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	return nil
}

// Tx appends a transmitted frame stamped with the current time.
func (w *Writer) Tx(data []byte) error {
	return w.Write(Record{Time: time.Now(), Dir: DirTx, Data: data})
}

// Rx appends a received frame with its decoded summary. parseErr records
// why the frame failed to decode, if it did.
func (w *Writer) Rx(data []byte, id, instruction, errByte uint8, parseErr error) error {
	rec := Record{Time: time.Now(), Dir: DirRx, Data: data,
		ID: id, Instruction: instruction, Error: errByte}
	if parseErr != nil {
		rec.ParseError = parseErr.Error()
	}
	return w.Write(rec)
}

// Reader decodes records back out of a CBOR stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader wraps r in a capture stream reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Read returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Read() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}

// ReadAll drains the stream.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
