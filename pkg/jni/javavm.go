package jni

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/daimatz/gojni/pkg/vm"
)

// InvokeInterface is the function table of a JavaVM. Field order follows
// the standard slot numbering.
type InvokeInterface struct {
	DestroyJavaVM               func(vm *JavaVM) Int                               `jni:"3"`
	AttachCurrentThread         func(vm *JavaVM, penv **Env, args *AttachArgs) Int `jni:"4"`
	DetachCurrentThread         func(vm *JavaVM) Int                               `jni:"5"`
	GetEnv                      func(vm *JavaVM, penv **Env, version Int) Int      `jni:"6,1.2"`
	AttachCurrentThreadAsDaemon func(vm *JavaVM, penv **Env, args *AttachArgs) Int `jni:"7,1.4"`
}

var invokeInterface = &InvokeInterface{
	DestroyJavaVM:               func(jvm *JavaVM) Int { return jvm.destroy() },
	AttachCurrentThread:         func(jvm *JavaVM, penv **Env, args *AttachArgs) Int { return jvm.attach(penv, args, false) },
	DetachCurrentThread:         func(jvm *JavaVM) Int { return jvm.detach() },
	GetEnv:                      func(jvm *JavaVM, penv **Env, version Int) Int { return jvm.getEnv(penv, version) },
	AttachCurrentThreadAsDaemon: func(jvm *JavaVM, penv **Env, args *AttachArgs) Int { return jvm.attach(penv, args, true) },
}

// JavaVM is the invocation interface of one virtual machine. It is safe for
// concurrent use by attached threads.
type JavaVM struct {
	Functions *InvokeInterface

	rt           *vm.VM
	version      Int
	checked      bool
	verbose      bool
	logger       *log.Logger
	stderr       io.Writer
	fatalHandler func(msg string)
	threadID     func() int64

	mu           sync.Mutex
	cond         *sync.Cond
	envs         map[int64]*Env
	nextSerial   uint32
	shuttingDown bool
	destroyed    bool

	refMu   sync.Mutex
	globals slotTable
	weaks   slotTable

	methods memberTable[vm.Method]
	fields  memberTable[vm.Field]

	libMu     sync.Mutex
	libraries []Library

	violations atomic.Int64

	cell uintptr // C JavaVM, allocated on first use
}

type options struct {
	loader       vm.ClassLoader
	version      Int
	checked      bool
	verbose      bool
	logger       *log.Logger
	stdout       io.Writer
	stderr       io.Writer
	fatalHandler func(string)
	threadID     func() int64
	libraries    []Library
}

// Option configures CreateJavaVM.
type Option func(*options)

// WithClassLoader sets the loader for application classes.
func WithClassLoader(l vm.ClassLoader) Option {
	return func(o *options) { o.loader = l }
}

// WithVersion sets the interface version the main thread negotiates and
// the default for threads attached without AttachArgs.
func WithVersion(v Int) Option {
	return func(o *options) { o.version = v }
}

// WithCheckJNI makes every contract violation fatal.
func WithCheckJNI(enabled bool) Option {
	return func(o *options) { o.checked = enabled }
}

// WithVerbose logs native method linking, library loads and thread
// attachment at info level.
func WithVerbose(enabled bool) Option {
	return func(o *options) { o.verbose = enabled }
}

// WithLogger sets the logger for traces and contract violations. By
// default a logger writing to the VM's stderr is used.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStdout redirects System.out of the VM.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStderr redirects System.err, exception traces and fatal error
// reports of the VM.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithFatalHandler installs a function run by FatalError before the
// process exits. A handler that does not return, for example by
// panicking, keeps the process alive.
func WithFatalHandler(fn func(msg string)) Option {
	return func(o *options) { o.fatalHandler = fn }
}

// WithThreadIdentity replaces the source of the current thread's identity.
func WithThreadIdentity(fn func() int64) Option {
	return func(o *options) { o.threadID = fn }
}

// WithLibrary loads a native library once the VM is up.
func WithLibrary(lib Library) Option {
	return func(o *options) { o.libraries = append(o.libraries, lib) }
}

var (
	createdMu sync.Mutex
	created   []*JavaVM
)

// exit terminates the process after a fatal error.
var exit = os.Exit

// CreateJavaVM starts a virtual machine and attaches the calling thread to
// it as "main". Callers should lock the goroutine to its OS thread first.
func CreateJavaVM(opts ...Option) (*JavaVM, *Env, error) {
	o := options{
		version:  LatestVersion,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		threadID: currentThreadID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !SupportedVersion(o.version) {
		return nil, nil, fmt.Errorf("creating java VM: %w: %#x", ErrUnsupportedVersion, o.version)
	}
	if o.logger == nil {
		o.logger = log.NewWithOptions(o.stderr, log.Options{Prefix: "jni"})
	}

	rt := vm.NewVM(o.loader)
	rt.Stdout = o.stdout
	rt.Stderr = o.stderr

	jvm := &JavaVM{
		Functions:    invokeInterface,
		rt:           rt,
		version:      o.version,
		checked:      o.checked,
		verbose:      o.verbose,
		logger:       o.logger,
		stderr:       o.stderr,
		fatalHandler: o.fatalHandler,
		threadID:     o.threadID,
		envs:         make(map[int64]*Env),
	}
	jvm.cond = sync.NewCond(&jvm.mu)
	rt.Natives = jvm

	var env *Env
	if rc := jvm.attach(&env, &AttachArgs{Version: o.version, Name: "main"}, false); rc != OK {
		return nil, nil, fmt.Errorf("attaching main thread: status %d", rc)
	}
	for _, lib := range o.libraries {
		if err := jvm.LoadLibrary(lib); err != nil {
			jvm.destroy()
			return nil, nil, err
		}
	}

	createdMu.Lock()
	created = append(created, jvm)
	createdMu.Unlock()
	return jvm, env, nil
}

// GetCreatedJavaVMs returns the virtual machines that have been created and
// not yet destroyed.
func GetCreatedJavaVMs() []*JavaVM {
	createdMu.Lock()
	defer createdMu.Unlock()
	out := make([]*JavaVM, len(created))
	copy(out, created)
	return out
}

// Runtime returns the interpreter behind the VM.
func (jvm *JavaVM) Runtime() *vm.VM { return jvm.rt }

// Version returns the VM's default interface version.
func (jvm *JavaVM) Version() Int { return jvm.version }

// Violations returns the number of contract violations reported so far.
func (jvm *JavaVM) Violations() int64 { return jvm.violations.Load() }

// DestroyJavaVM waits for the other non-daemon threads to detach and
// shuts the VM down.
func (jvm *JavaVM) DestroyJavaVM() Int { return jvm.Functions.DestroyJavaVM(jvm) }

// AttachCurrentThread attaches the calling thread. On a thread that is
// already attached it renegotiates the version given in args.
func (jvm *JavaVM) AttachCurrentThread(penv **Env, args *AttachArgs) Int {
	return jvm.Functions.AttachCurrentThread(jvm, penv, args)
}

// AttachCurrentThreadAsDaemon attaches the calling thread as a daemon,
// which DestroyJavaVM does not wait for.
func (jvm *JavaVM) AttachCurrentThreadAsDaemon(penv **Env, args *AttachArgs) Int {
	return jvm.Functions.AttachCurrentThreadAsDaemon(jvm, penv, args)
}

// DetachCurrentThread detaches the calling thread and frees its local
// references and monitors.
func (jvm *JavaVM) DetachCurrentThread() Int { return jvm.Functions.DetachCurrentThread(jvm) }

// GetEnv returns the environment of the calling thread negotiated at version.
func (jvm *JavaVM) GetEnv(penv **Env, version Int) Int {
	return jvm.Functions.GetEnv(jvm, penv, version)
}

// trace logs lifecycle events, at info level in verbose mode.
func (jvm *JavaVM) trace(msg string, keyvals ...interface{}) {
	if jvm.verbose {
		jvm.logger.Info(msg, keyvals...)
		return
	}
	jvm.logger.Debug(msg, keyvals...)
}

// fatal reports an unrecoverable error. It runs the fatal handler and exits
// the process if the handler returns.
func (jvm *JavaVM) fatal(e *Env, msg string) {
	fmt.Fprintf(jvm.stderr, "FATAL ERROR in native method: %s\n", msg)
	if e != nil && e.thread != nil {
		fmt.Fprintf(jvm.stderr, "\tin thread %q\n", e.thread.Name)
	}
	if jvm.fatalHandler != nil {
		jvm.fatalHandler(msg)
	}
	exit(134)
}

func (jvm *JavaVM) attach(penv **Env, args *AttachArgs, daemon bool) Int {
	if penv == nil {
		return EInval
	}
	version, name := jvm.version, ""
	if args != nil {
		if args.Version != 0 {
			version = args.Version
		}
		name = args.Name
	}
	if !SupportedVersion(version) {
		return EVersion
	}
	tid := jvm.threadID()

	jvm.mu.Lock()
	defer jvm.mu.Unlock()
	if e, ok := jvm.envs[tid]; ok {
		if args != nil && args.Version != 0 {
			e.negotiate(args.Version)
		}
		*penv = e
		return OK
	}
	if jvm.shuttingDown {
		return Err
	}
	jvm.nextSerial++
	if name == "" {
		name = fmt.Sprintf("Thread-%d", jvm.nextSerial)
	}
	t := jvm.rt.NewThread(name, daemon)
	e := newEnv(jvm, t, tid, jvm.nextSerial, version)
	t.Attachment = e
	jvm.envs[tid] = e
	jvm.trace("attached thread", "name", name, "tid", tid, "daemon", daemon, "version", VersionString(version))
	*penv = e
	return OK
}

func (jvm *JavaVM) detach() Int {
	tid := jvm.threadID()
	jvm.mu.Lock()
	e, ok := jvm.envs[tid]
	if !ok {
		jvm.mu.Unlock()
		return EDetached
	}
	if e.thread.Depth() > 0 {
		jvm.mu.Unlock()
		return Err
	}
	delete(jvm.envs, tid)
	jvm.cond.Broadcast()
	jvm.mu.Unlock()

	jvm.release(e)
	jvm.trace("detached thread", "name", e.thread.Name, "tid", tid)
	return OK
}

// release frees everything an environment holds.
func (jvm *JavaVM) release(e *Env) {
	e.releaseAll()
	e.thread.Attachment = nil
	e.freeCell()
}

func (jvm *JavaVM) getEnv(penv **Env, version Int) Int {
	jvm.mu.Lock()
	e, ok := jvm.envs[jvm.threadID()]
	jvm.mu.Unlock()
	if !ok {
		return EDetached
	}
	if !SupportedVersion(version) {
		return EVersion
	}
	e.negotiate(version)
	*penv = e
	return OK
}

// destroy waits for every other non-daemon thread to detach, unloads the
// native libraries and detaches the remaining threads.
func (jvm *JavaVM) destroy() Int {
	tid := jvm.threadID()
	jvm.mu.Lock()
	if jvm.shuttingDown {
		jvm.mu.Unlock()
		return Err
	}
	jvm.shuttingDown = true
	for jvm.otherUserThreads(tid) > 0 {
		jvm.cond.Wait()
	}
	jvm.mu.Unlock()

	jvm.unloadLibraries()

	jvm.mu.Lock()
	envs := jvm.envs
	jvm.envs = make(map[int64]*Env)
	jvm.destroyed = true
	jvm.mu.Unlock()
	for _, e := range envs {
		jvm.release(e)
	}

	createdMu.Lock()
	for i, v := range created {
		if v == jvm {
			created = append(created[:i], created[i+1:]...)
			break
		}
	}
	createdMu.Unlock()
	jvm.freeCell()
	jvm.trace("destroyed java VM")
	return OK
}

func (jvm *JavaVM) otherUserThreads(tid int64) int {
	n := 0
	for id, e := range jvm.envs {
		if id != tid && !e.thread.Daemon {
			n++
		}
	}
	return n
}

// envFor returns the environment attached to the calling thread.
func (jvm *JavaVM) envFor(tid int64) *Env {
	jvm.mu.Lock()
	defer jvm.mu.Unlock()
	return jvm.envs[tid]
}
