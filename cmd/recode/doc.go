// Package main hosts the recode CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the full lifecycle: `run` drives a
// scan-prepare-encode pass over the source directory (interactive when
// stdout is a terminal, plain logging otherwise), `doctor` verifies tools
// and directories, `history` queries past runs, and `config` scaffolds and
// validates the configuration file.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
