package mirror

import "fmt"

// PackagePath locates a package's tarball within the mirror using the
// registry's two-character-prefix scheme: names of length >=4 shard on
// their first four characters, shorter names shard on their own length.
func PackagePath(name, version string) string {
	return fmt.Sprintf("crates/%s/%s/%s-%s.crate", prefixPath(name), version, name, version)
}

func prefixPath(name string) string {
	switch {
	case len(name) >= 4:
		return fmt.Sprintf("%s/%s", name[0:2], name[2:4])
	case len(name) == 3:
		return fmt.Sprintf("3/%s", name)
	case len(name) == 2:
		return fmt.Sprintf("2/%s", name)
	default:
		return fmt.Sprintf("1/%s", name)
	}
}
