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

import vfs "github.com/twpayne/go-vfs/v4"

type ChallengeMode int

const (
	// ChallengeNone quotes with 20 zero bytes of external data.
	ChallengeNone ChallengeMode = iota
	// ChallengeFile quotes with the digest of a challenger-supplied file.
	ChallengeFile
)

func (m ChallengeMode) String() string {
	if m == ChallengeFile {
		return "file"
	}
	return "none"
}

// Challenge is the external data bound into a quote.
type Challenge struct {
	Mode   ChallengeMode
	Path   string
	Size   int
	Digest Digest
}

// LoadChallenge digests the file at path. An empty path selects ChallengeNone
// and nothing is hashed; a path that cannot be read is an *IOError.
func LoadChallenge(fsys vfs.FS, path string, digest func([]byte) Digest) (Challenge, error) {
	if path == "" {
		return Challenge{Mode: ChallengeNone, Digest: ZeroDigest}, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return Challenge{}, &IOError{Stage: StageChallenge, Path: path, Err: err}
	}

	return Challenge{
		Mode:   ChallengeFile,
		Path:   path,
		Size:   len(data),
		Digest: digest(data),
	}, nil
}
