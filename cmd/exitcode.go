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

package cmd

import (
	"errors"

	"github.com/itsmeyaw/xenquote/pkg/pcrquote"
)

// Exit codes of the xenquote command.
const (
	// Success
	ExitOK = 0
	// Usage errors and anything not listed below
	ExitFailure = 1
	// A file could not be opened, read or written
	ExitIO = 2
	// A TPM operation failed
	ExitTPM = 3
	// The rebuilt PCR composite does not match the quoted composite hash
	ExitInconsistentQuote = 4
	// The quote signature does not verify
	ExitBadSignature = 5
)

// ExitCode maps an error returned by a command to its exit code.
func ExitCode(err error) int {
	var (
		ioErr  *pcrquote.IOError
		tpmErr *pcrquote.TPMOperationError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, pcrquote.ErrInconsistentPCRHash):
		return ExitInconsistentQuote
	case errors.Is(err, pcrquote.ErrBadSignature):
		return ExitBadSignature
	case errors.As(err, &tpmErr):
		return ExitTPM
	case errors.As(err, &ioErr):
		return ExitIO
	default:
		return ExitFailure
	}
}
