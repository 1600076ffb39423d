package utils

import (
	"fmt"
	"os"
	"strconv"
)

// Verbose enables informational logging. It is initialized from the
// GOPOISSON_VERBOSE environment variable and may be toggled by the CLI.
var Verbose = envBool("GOPOISSON_VERBOSE")

func envBool(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Infof prints an informational message when Verbose is set.
func Infof(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[gopoisson] "+format+"\n", args...)
	}
}

// Warnf always prints a warning message.
func Warnf(format string, args ...interface{}) {
	fmt.Printf("[gopoisson - WARNING] "+format+"\n", args...)
}

// Checkf panics with a formatted message when cond does not hold. It is used
// for internal invariants; configuration errors on the public API are
// returned as errors instead.
func Checkf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("[gopoisson - ERROR] "+format, args...))
	}
}

// NumThreads returns the per-process worker hint for the transform loops,
// read from GOPOISSON_NTHREADS. Values below 1 mean single-threaded.
func NumThreads() int {
	v, ok := os.LookupEnv("GOPOISSON_NTHREADS")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
