package directory

import "github.com/marmos91/driftvault/internal/driveerr"

func errNoSuchFile(name string) error {
	return driveerr.NewPath(driveerr.ErrNoSuchFile, "no such entry", name)
}

func errFileExists(name string) error {
	return driveerr.NewPath(driveerr.ErrFileExists, "entry already exists", name)
}
