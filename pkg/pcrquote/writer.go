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
	"io"
	"os"

	vfs "github.com/twpayne/go-vfs/v4"
	"go.uber.org/multierr"
)

// WriteQuoteFile writes record followed by signature to path, creating or
// truncating it. A failed write leaves whatever reached the file in place.
func WriteQuoteFile(fsys vfs.FS, path string, record, signature []byte) (err error) {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &IOError{Stage: StageWrite, Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, &IOError{Stage: StageWrite, Path: path, Err: cerr})
		}
	}()

	if err := writeQuote(f, record, signature); err != nil {
		return &IOError{Stage: StageWrite, Path: path, Err: err}
	}
	return nil
}

func writeQuote(w io.Writer, record, signature []byte) error {
	for _, b := range [][]byte{record, signature} {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n != len(b) {
			return io.ErrShortWrite
		}
	}
	return nil
}
