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

package types

import (
	"encoding/hex"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

type PCRValue struct {
	Index uint32 `json:"index" yaml:"index"`
	Value string `json:"value" yaml:"value"`
}

// QuoteReport is the decoded form of a quote file printed by inspect.
type QuoteReport struct {
	Path          string     `json:"path" yaml:"path"`
	MaskLen       uint16     `json:"maskLen" yaml:"maskLen"`
	Mask          string     `json:"mask" yaml:"mask"`
	ValueLen      uint32     `json:"valueLen" yaml:"valueLen"`
	PCRs          []PCRValue `json:"pcrs" yaml:"pcrs"`
	Candidate     string     `json:"candidate" yaml:"candidate"`
	CompositeHash string     `json:"compositeHash" yaml:"compositeHash"`
	SignatureLen  int        `json:"signatureLen" yaml:"signatureLen"`
	Signature     string     `json:"signature" yaml:"signature"`
}

func NewQuoteReport(path string, qf *pcrquote.QuoteFile) (QuoteReport, error) {
	valueLen, err := qf.Record.ValueLen()
	if err != nil {
		return QuoteReport{}, err
	}

	report := QuoteReport{
		Path:          path,
		MaskLen:       qf.Record.MaskLen,
		Mask:          hex.EncodeToString(qf.Record.Mask),
		ValueLen:      valueLen,
		CompositeHash: pcrquote.SHA1(qf.RecordBytes).String(),
		SignatureLen:  len(qf.Signature),
		Signature:     hex.EncodeToString(qf.Signature),
	}

	// A record written through the short-mask fallback selects fewer indices
	// than it carries values for; it is marked short-mask and its values are
	// reported by position.
	indices := qf.SelectedIndices()
	byIndex := len(indices) == len(qf.Record.Values)
	report.Candidate = pcrquote.CandidateFullMask.String()
	if !byIndex {
		report.Candidate = pcrquote.CandidateShortMask.String()
	}
	for i, v := range qf.Record.Values {
		idx := uint32(i)
		if byIndex {
			idx = indices[i]
		}
		report.PCRs = append(report.PCRs, PCRValue{Index: idx, Value: v.String()})
	}
	return report, nil
}
