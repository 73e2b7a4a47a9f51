package runner

import (
	"errors"
	"fmt"
	"monorun/internal/workspace"
	"strings"
)

type Kind string

const (
	KindInstall Kind = "install"
	KindCodegen Kind = "codegen"
	KindTest    Kind = "test"
	KindExec    Kind = "exec"
)

// Operation is what runs in every package.
type Operation struct {
	Kind Kind
	// Script is the package.json script for codegen and test.
	Script string
	// Argv is the command for exec.
	Argv []string
}

func Install() Operation { return Operation{Kind: KindInstall} }

func Codegen(script string) Operation { return Operation{Kind: KindCodegen, Script: script} }

func Test(script string) Operation { return Operation{Kind: KindTest, Script: script} }

func Exec(argv ...string) Operation { return Operation{Kind: KindExec, Argv: argv} }

func (op Operation) Validate() error {
	switch op.Kind {
	case KindInstall:
		return nil
	case KindCodegen, KindTest:
		if strings.TrimSpace(op.Script) == "" {
			return fmt.Errorf("%s: script name must not be empty", op.Kind)
		}
		return nil
	case KindExec:
		if len(op.Argv) == 0 || strings.TrimSpace(op.Argv[0]) == "" {
			return errors.New("exec: command must not be empty")
		}
		return nil
	}
	return fmt.Errorf("unknown operation %q", op.Kind)
}

func (op Operation) String() string {
	switch op.Kind {
	case KindExec:
		return strings.Join(op.Argv, " ")
	case KindCodegen, KindTest:
		return fmt.Sprintf("%s (%s)", op.Kind, op.Script)
	}
	return string(op.Kind)
}

// Command returns the argv to run in pkg with package manager pm. ok is
// false when pkg does not declare the script the operation needs.
func (op Operation) Command(pm string, pkg workspace.Package) (argv []string, ok bool) {
	switch op.Kind {
	case KindInstall:
		return []string{pm, "install"}, true
	case KindCodegen, KindTest:
		if !pkg.HasScript(op.Script) {
			return nil, false
		}
		return []string{pm, "run", op.Script}, true
	case KindExec:
		return append([]string{}, op.Argv...), true
	}
	return nil, false
}
