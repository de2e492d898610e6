package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

// bindFlags binds config keys to flags. A flag only overrides the file and
// environment when it is set on the command line.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
