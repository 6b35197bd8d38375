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
	"slices"

	vfs "github.com/twpayne/go-vfs/v4"
)

// QuoteFile is a decoded quote file.
type QuoteFile struct {
	Record Record
	// RecordBytes is the record exactly as stored, the preimage of the
	// composite hash.
	RecordBytes []byte
	Signature   []byte
}

// ParseQuoteFile splits b into the record and the signature that follows it.
func ParseQuoteFile(b []byte) (*QuoteFile, error) {
	rec, rest, err := ParseRecord(b)
	if err != nil {
		return nil, err
	}
	n := len(b) - len(rest)
	return &QuoteFile{
		Record:      rec,
		RecordBytes: slices.Clone(b[:n]),
		Signature:   slices.Clone(rest),
	}, nil
}

func ReadQuoteFile(fsys vfs.FS, path string) (*QuoteFile, error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &IOError{Stage: StageReadQuote, Path: path, Err: err}
	}
	qf, err := ParseQuoteFile(b)
	if err != nil {
		return nil, &IOError{Stage: StageReadQuote, Path: path, Err: err}
	}
	return qf, nil
}

// SelectedIndices lists the PCRs set in the stored mask.
func (q *QuoteFile) SelectedIndices() []uint32 {
	return PCRMask(q.Record.Mask).Indices()
}
