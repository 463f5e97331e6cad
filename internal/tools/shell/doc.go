// Package shell exposes the two execution capabilities a model may request:
// whitelisted shell commands and script runs.
//
// Every shell_command passes through the Validator before anything is
// spawned. The Validator is a pure function of its inputs: an immutable
// Whitelist, a swappable ArgumentPolicy and a working-directory source.
//
// Tools:
//   - shell_command: run one whitelisted command with literal arguments
//   - run_python_file: run a script with the configured interpreter
package shell
