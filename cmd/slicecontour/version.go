package main

import (
	"flag"
	"fmt"
)

type versionCmd struct{ r *root }

func (v *versionCmd) Program() string {
	return v.r.program
}

func (v *versionCmd) FlagSet() *flag.FlagSet {
	return nil
}

func (v *versionCmd) Run() error {
	fmt.Fprintf(v.r.stdout, "%s version %s\n", v.r.program, version)
	if commit != "" {
		fmt.Fprintf(v.r.stdout, "commit %s\n", commit)
	}
	if date != "" {
		fmt.Fprintf(v.r.stdout, "built %s\n", date)
	}
	return nil
}
