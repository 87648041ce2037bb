package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"starling/internal/ast"
	"starling/internal/project"
)

// Bump when the DiskPayload format changes; stale entries miss instead
// of decoding garbage.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores compile artifacts by module digest on disk.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// InstancePayload is one recorded monomorphization in cached form.
type InstancePayload struct {
	Instance string
	Generic  string
	Strategy uint8
}

// DiskPayload caches the outcome of one module compile for fast
// re-checks: whether it was clean and which instances it produced.
type DiskPayload struct {
	Schema uint16

	Name        string
	ContentHash project.Digest

	HasErrors bool
	FuncNames []string
	Instances []InstancePayload
}

// OpenDiskCache initializes a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt initializes a disk cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "mods", hexKey+".mp")
}

// Put serializes a payload and atomically replaces any previous entry.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = diskCacheSchemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or schema mismatch is a miss,
// not an error.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// Fingerprint digests the resolved module's declaration surface. Bodies
// are covered through the upstream file hashes; this key only has to
// change when the module the middle-end sees changes.
func Fingerprint(m *ast.Module) project.Digest {
	h := sha256.New()
	h.Write([]byte(m.Name))
	names := make([]string, 0, len(m.Funcs))
	for _, fn := range m.Funcs {
		if fn != nil {
			names = append(names, fn.Name)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		h.Write([]byte{0})
		h.Write([]byte(n))
	}
	var out project.Digest
	copy(out[:], h.Sum(nil))
	return out
}

// PayloadFromResult distills a finished compile into its cacheable form.
func PayloadFromResult(m *ast.Module, res *Result) *DiskPayload {
	p := &DiskPayload{
		Name:        m.Name,
		ContentHash: Fingerprint(m),
		HasErrors:   res.Bag.HasErrors(),
	}
	if res.Module != nil {
		for name := range res.Module.FuncByName {
			p.FuncNames = append(p.FuncNames, name)
		}
		sort.Strings(p.FuncNames)
	}
	if res.Recorder != nil {
		for _, inst := range res.Recorder.Instantiations() {
			p.Instances = append(p.Instances, InstancePayload{
				Instance: inst.Instance,
				Generic:  inst.Generic,
				Strategy: uint8(inst.Strategy),
			})
		}
	}
	return p
}
