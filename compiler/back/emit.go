package back

import (
	"context"
	"sync"

	llvm "tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

var initTargets sync.Once

// hostMachine builds a target machine for the host triple with
// PIC relocation and the generic CPU model.
func hostMachine() (llvm.TargetMachine, error) {
	initTargets.Do(func() {
		llvm.InitializeAllTargetInfos()
		llvm.InitializeAllTargets()
		llvm.InitializeAllTargetMCs()
		llvm.InitializeAllAsmParsers()
		llvm.InitializeAllAsmPrinters()
	})

	triple := llvm.DefaultTargetTriple()

	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return llvm.TargetMachine{}, errors.Wrap(err, "lookup target %v", triple)
	}

	machine := target.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelDefault, llvm.RelocPIC, llvm.CodeModelDefault)

	return machine, nil
}

// optimize runs the fixed middle-end pipeline. The optimized module
// must behave exactly as the unoptimized one.
func (g *gen) optimize(ctx context.Context) error {
	opts := llvm.NewPassBuilderOptions()
	defer opts.Dispose()

	err := g.m.RunPasses("instcombine,reassociate,gvn,simplifycfg", g.machine, opts)
	if err != nil {
		return errors.Wrap(err, "run passes")
	}

	return nil
}

// emitObject compiles the module down to a relocatable object.
func (g *gen) emitObject(ctx context.Context) ([]byte, error) {
	err := llvm.VerifyModule(g.m, llvm.ReturnStatusAction)
	if err != nil {
		return nil, errors.Wrap(err, "verify module")
	}

	buf, err := g.machine.EmitToMemoryBuffer(g.m, llvm.ObjectFile)
	if err != nil {
		return nil, errors.Wrap(err, "emit object")
	}
	defer buf.Dispose()

	obj := make([]byte, len(buf.Bytes()))
	copy(obj, buf.Bytes())

	tlog.SpanFromContext(ctx).Printw("object emitted", "size", len(obj))

	return obj, nil
}
