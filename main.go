/*
Copyright (C) 2026  the cph-lang contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import "os"
import "fmt"
import "flag"
import "io/ioutil"

import "github.com/cph-lang/stepwise/vm"

func main() {
	verbose := flag.Bool("v", false, "raise log verbosity to info")
	veryVerbose := flag.Bool("vv", false, "raise log verbosity to debug")
	gcThreshold := flag.Int("gc-initial-threshold", 0, "override the initial GC threshold (0 = default: literal count + 64)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: stepwise <source-file>")
		os.Exit(1)
	}

	source, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	verbosity := vm.Verbosity(0)
	if *veryVerbose {
		verbosity = 2
	} else if *verbose {
		verbosity = 1
	}

	state, err := vm.NewStateWithOptions(string(source), vm.Options{
		Verbosity:          verbosity,
		GCInitialThreshold: *gcThreshold,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := state.Execute(); err != nil {
		vm.FlushStdout()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	vm.FlushStdout()
	fmt.Println("<end-of-stdout>")
	fmt.Println(vm.FormatValue(state.Result()))
}
