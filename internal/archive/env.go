package archive

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ModePolicy decides the permission bits applied to an extracted entry.
// It receives the mode recorded in the archive and returns the mode to
// apply. Returning false refuses the recorded mode entirely, keeping the
// default bits the entry was created with; archives produced by some
// packers record mode 0 and would otherwise yield unreadable files.
type ModePolicy func(recorded os.FileMode) (os.FileMode, bool)

// DefaultModePolicy keeps recorded permission bits except all-zero ones.
func DefaultModePolicy(recorded os.FileMode) (os.FileMode, bool) {
	if recorded.Perm() == 0 {
		return 0, false
	}
	return recorded.Perm(), true
}

const (
	mountPrefix   = "/mnt/"
	scratchPrefix = "/scratch/"
)

// environment is the private namespace a single extraction runs in. Host
// directories become visible only through Mount, scratch space lives in
// memory, and Close tears the whole namespace down. Paths inside the
// namespace always use forward slashes.
type environment struct {
	policy ModePolicy

	mu      sync.Mutex
	mounts  map[string]afero.Fs
	scratch afero.Fs
}

func newEnvironment(policy ModePolicy) *environment {
	if policy == nil {
		policy = DefaultModePolicy
	}
	return &environment{
		policy:  policy,
		mounts:  make(map[string]afero.Fs),
		scratch: afero.NewMemMapFs(),
	}
}

// Mount exposes hostDir inside the environment and returns the mount
// point. Each call yields a fresh /mnt/<id> path so repeated mounts of
// the same directory never collide.
func (env *environment) Mount(hostDir string) (string, error) {
	info, err := os.Stat(hostDir)
	if err != nil {
		return "", fmt.Errorf("mount %s: %w", hostDir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("mount %s: not a directory", hostDir)
	}

	id := uuid.NewString()
	env.mu.Lock()
	env.mounts[id] = afero.NewBasePathFs(afero.NewOsFs(), hostDir)
	env.mu.Unlock()
	return mountPrefix + id, nil
}

// Unmount detaches a path returned by Mount. Unknown paths are ignored.
func (env *environment) Unmount(mountPath string) {
	id := strings.TrimPrefix(mountPath, mountPrefix)
	env.mu.Lock()
	delete(env.mounts, id)
	env.mu.Unlock()
}

// ScratchDir allocates a fresh in-memory working directory.
func (env *environment) ScratchDir() (string, error) {
	dir := scratchPrefix + uuid.NewString()
	env.mu.Lock()
	scratch := env.scratch
	env.mu.Unlock()
	if err := scratch.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Close detaches every mount and drops the scratch space. It runs no
// matter how the extraction ended; afterwards no path resolves.
func (env *environment) Close() {
	env.mu.Lock()
	env.mounts = make(map[string]afero.Fs)
	env.scratch = afero.NewMemMapFs()
	env.mu.Unlock()
}

// resolve routes an environment path to its backing filesystem and the
// path relative to it. Paths outside the namespace are refused.
func (env *environment) resolve(p string) (afero.Fs, string, error) {
	if strings.HasPrefix(p, scratchPrefix) {
		env.mu.Lock()
		scratch := env.scratch
		env.mu.Unlock()
		return scratch, p, nil
	}
	if strings.HasPrefix(p, mountPrefix) {
		id, rel, _ := strings.Cut(strings.TrimPrefix(p, mountPrefix), "/")
		env.mu.Lock()
		fs, ok := env.mounts[id]
		env.mu.Unlock()
		if !ok {
			return nil, "", fmt.Errorf("%s: not mounted", p)
		}
		if rel == "" {
			rel = "."
		}
		return fs, rel, nil
	}
	return nil, "", fmt.Errorf("%s: outside the extraction namespace", p)
}

func (env *environment) Open(p string) (afero.File, error) {
	fs, rel, err := env.resolve(p)
	if err != nil {
		return nil, err
	}
	return fs.Open(rel)
}

func (env *environment) Create(p string) (afero.File, error) {
	fs, rel, err := env.resolve(p)
	if err != nil {
		return nil, err
	}
	return fs.Create(rel)
}

func (env *environment) MkdirAll(p string, mode os.FileMode) error {
	fs, rel, err := env.resolve(p)
	if err != nil {
		return err
	}
	return fs.MkdirAll(rel, mode)
}

func (env *environment) Stat(p string) (os.FileInfo, error) {
	fs, rel, err := env.resolve(p)
	if err != nil {
		return nil, err
	}
	return fs.Stat(rel)
}

func (env *environment) ReadDir(p string) ([]os.FileInfo, error) {
	fs, rel, err := env.resolve(p)
	if err != nil {
		return nil, err
	}
	return afero.ReadDir(fs, rel)
}

// Chmod applies the environment's mode policy to an extracted entry.
// Refused modes leave the entry's default bits untouched.
func (env *environment) Chmod(p string, recorded os.FileMode) error {
	mode, ok := env.policy(recorded)
	if !ok {
		return nil
	}
	fs, rel, err := env.resolve(p)
	if err != nil {
		return err
	}
	return fs.Chmod(rel, mode)
}
