// Package flagx helps several independent parsers share os.Args.
//
// The standard flag package stops at the first unknown flag, so each config
// layer first filters the arguments down to the flags it owns and parses
// only those.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// normalize maps "--name" to "-name"; package flag treats both the same.
func normalize(name string) string {
	if strings.HasPrefix(name, "--") {
		return name[1:]
	}
	return name
}

// FilterArgs keeps only the flags listed in owned together with their values.
// Both "-f value" and "-f=value" forms are recognized, and a flag may be
// spelled with one or two leading dashes regardless of how it is listed.
// A token starting with '-' is never consumed as a value.
func FilterArgs(args []string, owned []string) []string {
	known := make(map[string]struct{}, len(owned))
	for _, f := range owned {
		known[normalize(f)] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		if _, ok := known[normalize(name)]; !ok {
			continue
		}
		out = append(out, arg)
		if hasValue {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// StringFlag returns the value of the last occurrence of any of names in args,
// or "" when none is given. Parse errors are ignored.
func StringFlag(args []string, names ...string) string {
	var value string

	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, strings.TrimLeft(n, "-"), "", "")
	}
	_ = fs.Parse(FilterArgs(args, names))

	return value
}

// JSONConfigPath extracts the config file path given with -c or -config.
func JSONConfigPath(args []string) string {
	return StringFlag(args, "-c", "-config")
}
