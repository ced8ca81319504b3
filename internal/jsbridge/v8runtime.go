//go:build v8

package jsbridge

import (
	"fmt"
	"reflect"

	v8 "github.com/tommie/v8go"
)

// v8Runtime implements Runtime for the V8 engine, using a single
// isolate/context pair and reflect-driven argument marshaling for
// RegisterFunc. A registered function's non-nil error is thrown as a
// plain string value holding the message, not as a TypeError object.
type v8Runtime struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ Runtime = (*v8Runtime)(nil)

// NewV8Runtime creates an isolate and context and returns a Runtime
// ready to Install a Bridge onto.
func NewV8Runtime() (*v8Runtime, func(), error) {
	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)
	cleanup := func() {
		ctx.Close()
		iso.Dispose()
	}
	return &v8Runtime{iso: iso, ctx: ctx}, cleanup, nil
}

func (r *v8Runtime) Eval(js string) error {
	_, err := r.ctx.RunScript(js, "jsbridge.js")
	return err
}

func (r *v8Runtime) RegisterFunc(name string, fn any) error {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("jsbridge: RegisterFunc: expected function, got %T", fn)
	}

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) < fnType.NumIn() {
			msg := fmt.Sprintf("%s requires %d argument(s), got %d", name, fnType.NumIn(), len(args))
			jsMsg, _ := v8.NewValue(r.iso, msg)
			r.iso.ThrowException(jsMsg)
			return nil
		}

		goArgs := make([]reflect.Value, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			goArgs[i] = jsArgToGo(args[i], fnType.In(i))
		}

		results := fnVal.Call(goArgs)
		switch fnType.NumOut() {
		case 0:
			return nil
		case 1:
			return goResultToJS(r.iso, r.ctx, results[0])
		case 2:
			if errVal := results[1]; !errVal.IsNil() {
				err := errVal.Interface().(error)
				jsMsg, _ := v8.NewValue(r.iso, fmt.Sprintf("calling %s: %s", name, err.Error()))
				r.iso.ThrowException(jsMsg)
				return nil
			}
			return goResultToJS(r.iso, r.ctx, results[0])
		default:
			return nil
		}
	})
	fnObj := tmpl.GetFunction(r.ctx)
	return r.ctx.Global().Set(name, fnObj)
}

func jsArgToGo(val *v8.Value, targetType reflect.Type) reflect.Value {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(val.String())
	case reflect.Float64:
		return reflect.ValueOf(val.Number())
	case reflect.Bool:
		return reflect.ValueOf(val.Boolean())
	default:
		return reflect.Zero(targetType)
	}
}

func goResultToJS(iso *v8.Isolate, ctx *v8.Context, v reflect.Value) *v8.Value {
	val, err := v8.NewValue(iso, v.Interface())
	if err != nil {
		return v8.Undefined(iso)
	}
	return val
}
