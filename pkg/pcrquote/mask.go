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
	"fmt"
	"math"
	"math/bits"
)

// PCRMask is a TPM_PCR_SELECTION bitmap: the LSB of byte 0 is PCR 0, the MSB
// of byte 0 is PCR 7, the LSB of byte 1 is PCR 8 and so on.
type PCRMask []byte

// MaskLen returns the number of mask bytes needed to select count PCRs.
func MaskLen(count uint32) (int, error) {
	n := (uint64(count) + 7) / 8
	if n > math.MaxUint16 {
		return 0, fmt.Errorf("%d PCRs need a %d byte mask, more than a 16-bit length field holds", count, n)
	}
	return int(n), nil
}

func (m PCRMask) IsSet(index uint32) bool {
	byteIndex := uint64(index) / 8
	if byteIndex >= uint64(len(m)) {
		return false
	}
	return m[byteIndex]&(1<<(index%8)) != 0
}

// Indices lists the selected PCRs in ascending order.
func (m PCRMask) Indices() []uint32 {
	indices := make([]uint32, 0, m.Count())
	for byteIndex, b := range m {
		for bit := uint32(0); bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				indices = append(indices, uint32(byteIndex)*8+bit)
			}
		}
	}
	return indices
}

// Count returns the number of selected PCRs.
func (m PCRMask) Count() int {
	n := 0
	for _, b := range m {
		n += bits.OnesCount8(b)
	}
	return n
}

// Selection is the set of PCRs covered by one quote.
type Selection struct {
	// Count is the number of PCRs the module reported.
	Count   uint32
	Mask    PCRMask
	Indices []uint32
}

// Select builds a selection of every PCR from 0 to count-1. A count of zero
// gives an empty mask and no indices.
func Select(count uint32) (Selection, error) {
	n, err := MaskLen(count)
	if err != nil {
		return Selection{}, err
	}

	mask := make(PCRMask, n)
	indices := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		mask[i/8] |= 1 << (i % 8)
		indices = append(indices, i)
	}

	return Selection{
		Count:   count,
		Mask:    mask,
		Indices: indices,
	}, nil
}
