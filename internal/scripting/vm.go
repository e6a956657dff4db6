// Package scripting runs sandboxed JavaScript dice scripts. A script defines
// roll(sides, game) and returns a face for each die the engine asks for, so a
// whole match can be driven without a human at the table.
package scripting

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrStopped is returned once the script has called stop().
var ErrStopped = errors.New("script requested stop")

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and global function injection.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	// stopRequested is set when the script calls stop().
	stopRequested bool
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	defaultMaxLogs    = 500
)

// NewVM creates a sandboxed runtime whose Math.random is seeded with seed,
// so the same script and seed always roll the same dice.
func NewVM(seed int64) *VM {
	vm := &VM{
		runtime: goja.New(),
		maxLogs: defaultMaxLogs,
	}
	vm.runtime.SetRandSource(rand.New(rand.NewSource(seed)).Float64)
	vm.injectGlobalFunctions()
	return vm
}

// injectGlobalFunctions registers log, console.log and stop, and blocks the
// globals a dice script has no business touching.
func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	_ = console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// stop() is called from inside a locked call, so it only flips the flag.
	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.stopRequested = true
		return goja.Undefined()
	})

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
}

// Execute runs the script source once, registering roll().
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(scriptInitTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		if !vm.hasFunc("roll") {
			return fmt.Errorf("roll() function is not defined")
		}
		return nil
	})
}

// CallRoll calls roll(sides, game) and returns the integer it produced.
// Range checks are left to the caller.
func (vm *VM) CallRoll(sides int, game any) (int, error) {
	var out int
	err := vm.runWithTimeout(scriptCallTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		if vm.stopRequested {
			return ErrStopped
		}
		callable, ok := goja.AssertFunction(vm.runtime.Get("roll"))
		if !ok {
			return fmt.Errorf("roll is not a function")
		}
		result, err := callable(goja.Undefined(), vm.runtime.ToValue(sides), vm.runtime.ToValue(game))
		if err != nil {
			return fmt.Errorf("roll() error: %w", err)
		}
		if vm.stopRequested {
			return ErrStopped
		}
		n, err := toInt(result)
		if err != nil {
			return fmt.Errorf("roll(%d): %w", sides, err)
		}
		out = n
		return nil
	})
	return out, err
}

func (vm *VM) hasFunc(name string) bool {
	_, ok := goja.AssertFunction(vm.runtime.Get(name))
	return ok
}

func toInt(v goja.Value) (int, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("returned nothing")
	}
	f := v.ToFloat()
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("returned non-integer %s", v.String())
	}
	return n, nil
}

// IsStopRequested returns true if stop() was called from the script.
func (vm *VM) IsStopRequested() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stopRequested
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		vm.runtime.Interrupt("script execution timeout")
		err := <-done
		vm.runtime.ClearInterrupt()
		if err != nil {
			return fmt.Errorf("script timed out: %w", err)
		}
		return fmt.Errorf("script timed out")
	}
}
