/*
Copyright 2026 Yudhisitra Arief Wibowo

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pcrquote

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/ccoveille/go-safecast"
)

const (
	maskLenFieldSize  = 2
	valueLenFieldSize = 4
)

// Record is the serialized TPM_PCR_COMPOSITE the TPM hashes into the
// composite hash of a quote:
//
//	u16 BE mask length || mask || u32 BE value length || PCR values
type Record struct {
	MaskLen uint16
	Mask    []byte
	Values  []Digest
}

// ValueLen is the value-length field: 20 bytes per PCR value.
func (r Record) ValueLen() (uint32, error) {
	n, err := safecast.ToUint32(len(r.Values) * DigestSize)
	if err != nil {
		return 0, fmt.Errorf("value length of %d PCRs: %w", len(r.Values), err)
	}
	return n, nil
}

// Size is the length of the serialized record.
func (r Record) Size() int {
	return maskLenFieldSize + len(r.Mask) + valueLenFieldSize + len(r.Values)*DigestSize
}

// Serialize writes the record in TPM wire order.
func (r Record) Serialize() ([]byte, error) {
	if int(r.MaskLen) != len(r.Mask) {
		return nil, fmt.Errorf("mask length field %d does not match %d mask bytes", r.MaskLen, len(r.Mask))
	}
	valueLen, err := r.ValueLen()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, r.Size())
	buf = binary.BigEndian.AppendUint16(buf, r.MaskLen)
	buf = append(buf, r.Mask...)
	buf = binary.BigEndian.AppendUint32(buf, valueLen)
	for _, v := range r.Values {
		buf = append(buf, v[:]...)
	}
	return buf, nil
}

// shortMask returns the record with the mask-length field decremented and the
// trailing mask byte dropped, which moves the value-length field and the values
// one byte to the left. Some TSS stacks hash the selection this way.
func (r Record) shortMask() (Record, bool) {
	if r.MaskLen == 0 {
		return Record{}, false
	}
	return Record{
		MaskLen: r.MaskLen - 1,
		Mask:    r.Mask[:len(r.Mask)-1],
		Values:  r.Values,
	}, true
}

// RecordBuilder assembles a Record from a selection and the values read for
// each selected PCR, in the selection's index order.
type RecordBuilder struct {
	Selection Selection
	Values    []Digest
}

func (b RecordBuilder) Build() (Record, error) {
	if len(b.Values) != len(b.Selection.Indices) {
		return Record{}, fmt.Errorf("have %d PCR values for %d selected PCRs", len(b.Values), len(b.Selection.Indices))
	}
	maskLen, err := safecast.ToUint16(len(b.Selection.Mask))
	if err != nil {
		return Record{}, fmt.Errorf("mask length %d: %w", len(b.Selection.Mask), err)
	}
	return Record{
		MaskLen: maskLen,
		Mask:    slices.Clone(b.Selection.Mask),
		Values:  slices.Clone(b.Values),
	}, nil
}

// ParseRecord decodes a record from the front of b and returns the bytes that
// follow it.
func ParseRecord(b []byte) (Record, []byte, error) {
	if len(b) < maskLenFieldSize {
		return Record{}, nil, fmt.Errorf("record truncated: missing mask length")
	}
	maskLen := binary.BigEndian.Uint16(b)
	b = b[maskLenFieldSize:]
	if len(b) < int(maskLen)+valueLenFieldSize {
		return Record{}, nil, fmt.Errorf("record truncated: mask of %d bytes", maskLen)
	}
	mask := slices.Clone(b[:maskLen])
	b = b[maskLen:]

	valueLen := binary.BigEndian.Uint32(b)
	b = b[valueLenFieldSize:]
	if valueLen%DigestSize != 0 {
		return Record{}, nil, fmt.Errorf("value length %d is not a multiple of %d", valueLen, DigestSize)
	}
	if uint64(len(b)) < uint64(valueLen) {
		return Record{}, nil, fmt.Errorf("record truncated: %d value bytes declared, %d present", valueLen, len(b))
	}

	values := make([]Digest, 0, valueLen/DigestSize)
	for off := 0; off < int(valueLen); off += DigestSize {
		var d Digest
		copy(d[:], b[off:off+DigestSize])
		values = append(values, d)
	}

	return Record{MaskLen: maskLen, Mask: mask, Values: values}, b[valueLen:], nil
}
