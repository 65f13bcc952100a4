// Copyright 2026 The fml Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// jobsFlag is an implementation of [pflag.Value] for the -j flag: a
// positive worker count, rejecting zero and negative values at parse
// time instead of silently serializing the build.
type jobsFlag int

var _ pflag.Value = new(jobsFlag)

func (f *jobsFlag) String() string {
	return strconv.Itoa(int(*f))
}

func (f *jobsFlag) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("parse jobs: %v", err)
	}
	if n < 1 {
		return fmt.Errorf("jobs must be at least 1 (got %d)", n)
	}
	*f = jobsFlag(n)
	return nil
}

func (f *jobsFlag) Type() string {
	return "int"
}
