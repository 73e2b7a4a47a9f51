// Package runner executes an operation (install, codegen, test or an
// arbitrary command) in workspace packages. Runner.Visit plugs into the
// scheduler as its Visitor; command output is streamed line by line with a
// colored [package] prefix.
package runner
