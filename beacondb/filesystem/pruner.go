package filesystem

import (
	"encoding/hex"
	"strings"

	"github.com/spf13/afero"
)

// PruneSummary reports the outcome of a PruneBefore pass.
type PruneSummary struct {
	BlocksPruned int
	FilesPruned  int
}

// PruneBefore removes every stored block's blob directory whose root is
// not in keep, used by the chain service to drop blob data that has
// fallen outside the retention window (§4.1: blobs are pruned, blocks and
// state never are).
func (b *BlobStorage) PruneBefore(keep map[[32]byte]bool) (*PruneSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := afero.ReadDir(b.fs, b.root)
	if err != nil {
		if isNotExist(err) {
			return &PruneSummary{}, nil
		}
		return nil, err
	}

	summary := &PruneSummary{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		root, ok := parseRootDir(e.Name())
		if !ok || keep[root] {
			continue
		}
		files, err := afero.ReadDir(b.fs, b.blockDir(root))
		if err == nil {
			summary.FilesPruned += len(files)
		}
		if err := b.fs.RemoveAll(b.blockDir(root)); err != nil {
			return summary, err
		}
		summary.BlocksPruned++
	}
	return summary, nil
}

func parseRootDir(name string) ([32]byte, bool) {
	var root [32]byte
	if len(name) != 64 {
		return root, false
	}
	decoded, err := hex.DecodeString(strings.ToLower(name))
	if err != nil || len(decoded) != 32 {
		return root, false
	}
	copy(root[:], decoded)
	return root, true
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "no such file")
}
