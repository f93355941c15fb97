package extract

import "os"

// currentEnv returns a copy of the process environment for packages.Config,
// so appending the load-time overrides never mutates os.Environ()'s backing
// array.
func currentEnv() []string {
	env := os.Environ()
	out := make([]string, len(env))
	copy(out, env)
	return out
}
