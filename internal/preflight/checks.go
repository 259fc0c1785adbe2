package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"tidybids/internal/runstore"
)

// minStagingBytes is the free-space floor for the staging filesystem. Apply
// runs shadow-copy every file they touch, so a near-full disk fails late and
// messily without this check.
const minStagingBytes = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%.1f GiB available)", path, float64(available)/(1<<30))
	if available < minBytes {
		return Result{Name: name, Detail: detail + " below minimum"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckRunstore verifies the history database can be opened and queried.
func CheckRunstore(ctx context.Context, path string) Result {
	const name = "Run history database"
	store, err := runstore.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: ping: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}
