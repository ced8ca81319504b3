//go:build !v8

package jsbridge

import (
	"fmt"

	"modernc.org/quickjs"
)

// quickjsRuntime implements Runtime for the QuickJS engine. RegisterFunc
// delegates to the VM's own reflect-based marshaling and wraps the raw
// registration so a (T, error) Go function throws a TypeError on error
// instead of returning a [value, error] tuple to JS.
type quickjsRuntime struct {
	vm *quickjs.VM
}

var _ Runtime = (*quickjsRuntime)(nil)

// NewQuickJSRuntime creates a VM and returns a Runtime ready to Install
// a Bridge onto.
func NewQuickJSRuntime() (*quickjsRuntime, func(), error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, nil, fmt.Errorf("jsbridge: creating quickjs VM: %w", err)
	}
	return &quickjsRuntime{vm: vm}, func() { vm.Close() }, nil
}

func (r *quickjsRuntime) Eval(js string) error {
	v, err := r.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// registerFuncWrapperJS is an IIFE taking the public name and the name
// of the already-registered raw function as arguments, rather than
// interpolating them at each use site, so the template only needs the
// two names plugged in once at the call boundary.
const registerFuncWrapperJS = `(function(publicName, rawName) {
	var raw = globalThis[rawName];
	globalThis[publicName] = function() {
		var result = raw.apply(this, arguments);
		if (Array.isArray(result)) {
			var value = result[0], callErr = result[1];
			if (callErr !== null && callErr !== undefined) {
				throw new TypeError("calling " + publicName + ": " + callErr);
			}
			return value;
		}
		return result;
	};
	delete globalThis[rawName];
})(%q, %q)`

func (r *quickjsRuntime) RegisterFunc(name string, fn any) error {
	rawName := "__raw_" + name
	if err := r.vm.RegisterFunc(rawName, fn, false); err != nil {
		return fmt.Errorf("jsbridge: registering %s: %w", name, err)
	}
	return r.Eval(fmt.Sprintf(registerFuncWrapperJS, name, rawName))
}
