package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/daimatz/gojni/pkg/classfile"
	"github.com/daimatz/gojni/pkg/native"
)

// DefaultMaxFrameDepth is the default maximum number of nested method calls per thread.
const DefaultMaxFrameDepth = 1024

// VM is the virtual machine that executes Java bytecode.
type VM struct {
	Loader        ClassLoader
	Stdout        io.Writer
	Stderr        io.Writer
	Natives       NativeResolver
	MaxFrameDepth int

	defined   *MapClassLoader
	bootstrap map[string]*intrinsic

	mu           sync.Mutex
	classes      map[string]*Class
	interned     map[string]*JString
	hashes       map[interface{}]int32
	nextHash     int32
	monitors     map[interface{}]*Monitor
	nextThreadID int64
}

// NewVM creates a new VM that loads application classes through loader.
// loader may be nil when only bootstrap and defined classes are used.
func NewVM(loader ClassLoader) *VM {
	vm := &VM{
		Loader:        loader,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		MaxFrameDepth: DefaultMaxFrameDepth,
		defined:       NewMapClassLoader(nil),
		classes:       make(map[string]*Class),
		interned:      make(map[string]*JString),
		hashes:        make(map[interface{}]int32),
		monitors:      make(map[interface{}]*Monitor),
	}
	vm.bootstrap = vm.bootstrapClasses()
	return vm
}

// Execute finds and executes the main method of the named class on a new
// thread called "main".
func (vm *VM) Execute(className string, args ...string) error {
	return vm.RunMain(vm.NewThread("main", false), className, args)
}

// RunMain executes className.main(String[]) on t.
func (vm *VM) RunMain(t *Thread, className string, args []string) error {
	c, err := vm.LoadClass(className)
	if err != nil {
		return err
	}
	method := c.DeclaredMethod("main", "([Ljava/lang/String;)V")
	if method == nil || !method.IsStatic() {
		return fmt.Errorf("main method not found in %s", className)
	}

	argv := NewArray("[Ljava/lang/String;", len(args))
	for i, a := range args {
		argv.Elements[i] = RefValue(NewJString(a))
	}
	_, err = vm.Invoke(t, method, []Value{RefValue(argv)})
	return err
}

// LoadClass returns the linked class with the given internal name, loading
// it on first use. Bootstrap classes take precedence over classes defined at
// run time, which take precedence over the application loader.
func (vm *VM) LoadClass(name string) (*Class, error) {
	vm.mu.Lock()
	if c, ok := vm.classes[name]; ok {
		vm.mu.Unlock()
		return c, nil
	}
	vm.mu.Unlock()

	var c *Class
	var err error
	switch {
	case strings.HasPrefix(name, "["):
		c, err = vm.arrayClass(name)
	case vm.bootstrap[name] != nil:
		c, err = vm.defineIntrinsic(name, vm.bootstrap[name])
	default:
		var cf *classfile.ClassFile
		cf, err = vm.defined.LoadClass(name)
		if err != nil && vm.Loader != nil {
			cf, err = vm.Loader.LoadClass(name)
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		c, err = vm.link(cf)
	}
	if err != nil {
		return nil, err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if existing, ok := vm.classes[name]; ok {
		return existing, nil
	}
	vm.classes[name] = c
	return c, nil
}

// DefineClass parses and links a class from its binary form. Defining a
// name that is already loaded raises LinkageError.
func (vm *VM) DefineClass(data []byte) (*Class, error) {
	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, NewJavaExceptionf("java/lang/ClassFormatError", "%v", err)
	}
	name, err := cf.ClassName()
	if err != nil {
		return nil, NewJavaExceptionf("java/lang/ClassFormatError", "%v", err)
	}
	if vm.Loaded(name) || vm.bootstrap[name] != nil {
		return nil, NewJavaExceptionf("java/lang/LinkageError", "duplicate class definition: %s", name)
	}
	if err := vm.defined.Define(cf); err != nil {
		return nil, NewJavaExceptionf("java/lang/LinkageError", "%v", err)
	}
	return vm.LoadClass(name)
}

// Loaded reports whether a class has already been loaded.
func (vm *VM) Loaded(name string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := vm.classes[name]
	return ok
}

func (vm *VM) arrayClass(name string) (*Class, error) {
	if !ValidFieldDescriptor(name) {
		return nil, fmt.Errorf("invalid array class name %q: %w", name, ErrClassNotFound)
	}
	if elem := name[1:]; IsReferenceDescriptor(elem) {
		if _, err := vm.LoadClass(ClassNameOf(elem)); err != nil {
			return nil, err
		}
	}
	obj, err := vm.LoadClass("java/lang/Object")
	if err != nil {
		return nil, err
	}
	c := newClass(vm, name, classfile.AccPublic|classfile.AccFinal|classfile.AccAbstract)
	c.Super = obj
	for _, in := range []string{"java/lang/Cloneable", "java/io/Serializable"} {
		iface, err := vm.LoadClass(in)
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, iface)
	}
	c.state = classInitialized
	return c, nil
}

// bootClass returns a bootstrap class. Bootstrap classes always link.
func (vm *VM) bootClass(name string) *Class {
	c, err := vm.LoadClass(name)
	if err != nil {
		panic(fmt.Sprintf("bootstrap class %s: %v", name, err))
	}
	return c
}

// ClassOf returns the runtime class of a reference.
func (vm *VM) ClassOf(ref interface{}) *Class {
	switch r := ref.(type) {
	case *JObject:
		return r.Class
	case *JString:
		return vm.bootClass("java/lang/String")
	case *JArray:
		c, err := vm.LoadClass(r.Type)
		if err != nil {
			return vm.bootClass("java/lang/Object")
		}
		return c
	case *Class:
		return vm.bootClass("java/lang/Class")
	case *native.PrintStream:
		return vm.bootClass("java/io/PrintStream")
	case *native.NativeHashMap:
		return vm.bootClass("java/util/HashMap")
	case *native.NativeInteger:
		return vm.bootClass("java/lang/Integer")
	case *native.StringBuilder:
		return vm.bootClass("java/lang/StringBuilder")
	default:
		return vm.bootClass("java/lang/Object")
	}
}

// IsInstanceOf reports whether a non-null reference is an instance of c.
func (vm *VM) IsInstanceOf(ref interface{}, c *Class) bool {
	return vm.ClassOf(ref).IsSubclassOf(c)
}

// NewInstance allocates an object of class c without running a constructor.
func (vm *VM) NewInstance(t *Thread, c *Class) (interface{}, error) {
	if c.IsAbstract() || c.IsArray() {
		return nil, NewJavaExceptionf("java/lang/InstantiationException", "%s", c.JavaName())
	}
	if err := c.Initialize(t); err != nil {
		return nil, err
	}
	for k := c; k != nil; k = k.Super {
		if k.alloc != nil {
			return k.alloc(c), nil
		}
	}
	obj := &JObject{Class: c, Fields: make(map[string]Value)}
	for _, f := range c.instanceFields() {
		if _, ok := obj.Fields[f.Name]; !ok {
			obj.Fields[f.Name] = ZeroValue(f.Descriptor)
		}
	}
	return obj, nil
}

// Intern returns the canonical string object for s.
func (vm *VM) Intern(s string) *JString {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if js, ok := vm.interned[s]; ok {
		return js
	}
	js := NewJString(s)
	vm.interned[s] = js
	return js
}

// IdentityHash returns a stable per-object hash code.
func (vm *VM) IdentityHash(ref interface{}) int32 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if h, ok := vm.hashes[ref]; ok {
		return h
	}
	vm.nextHash++
	h := vm.nextHash*0x61c88647 & 0x7fffffff
	vm.hashes[ref] = h
	return h
}

// Invoke calls m with args, which include the receiver for instance
// methods. The callee is exactly m; use InvokeVirtual for dynamic dispatch.
func (vm *VM) Invoke(t *Thread, m *Method, args []Value) (Value, error) {
	if t.depth >= vm.maxDepth() {
		return Value{}, NewJavaException("java/lang/StackOverflowError")
	}
	t.depth++
	defer func() { t.depth-- }()

	if m.IsStatic() {
		if err := m.Class.Initialize(t); err != nil {
			return Value{}, err
		}
	}
	if m.IsSynchronized() {
		var lock interface{} = m.Class
		if !m.IsStatic() {
			lock = args[0].Ref
		}
		mon := vm.MonitorOf(lock)
		mon.Enter(t)
		defer mon.Exit(t)
	}

	switch {
	case m.Intrinsic != nil:
		return m.Intrinsic(t, args)
	case m.IsNative():
		return vm.invokeNative(t, m, args)
	case m.IsAbstract() || m.Code == nil:
		return Value{}, NewJavaExceptionf("java/lang/AbstractMethodError", "%s", m)
	}
	return vm.executeMethod(t, m, args)
}

// InvokeVirtual selects the implementation of m for the receiver in args[0]
// and calls it.
func (vm *VM) InvokeVirtual(t *Thread, m *Method, args []Value) (Value, error) {
	if len(args) == 0 || args[0].IsNull() {
		return Value{}, NewJavaExceptionf("java/lang/NullPointerException", "cannot invoke %s on null", m)
	}
	return vm.Invoke(t, vm.selectMethod(args[0].Ref, m), args)
}

func (vm *VM) selectMethod(receiver interface{}, m *Method) *Method {
	if m.IsStatic() || m.IsConstructor() || m.Flags&classfile.AccPrivate != 0 {
		return m
	}
	if impl := vm.ClassOf(receiver).FindMethod(m.Name, m.Descriptor); impl != nil && !impl.IsAbstract() {
		return impl
	}
	return m
}

func (vm *VM) invokeNative(t *Thread, m *Method, args []Value) (Value, error) {
	fn := m.Bound()
	if fn == nil {
		if vm.Natives == nil {
			return Value{}, NewJavaExceptionf("java/lang/UnsatisfiedLinkError", "%s", m)
		}
		var err error
		fn, err = vm.Natives.ResolveNative(t, m)
		if err != nil {
			return Value{}, err
		}
		m.Bind(fn)
	}
	return fn(t, m, args)
}

func (vm *VM) maxDepth() int {
	if vm.MaxFrameDepth <= 0 {
		return DefaultMaxFrameDepth
	}
	return vm.MaxFrameDepth
}

// executeMethod interprets a method body with the given arguments and returns its return value.
func (vm *VM) executeMethod(t *Thread, m *Method, args []Value) (Value, error) {
	frame := NewFrame(m.Code.MaxLocals, m.Code.MaxStack, m.Code.Code, m.Class.File)
	frame.Method = m

	// Longs and doubles take two local slots.
	slot := 0
	for _, arg := range args {
		frame.SetLocal(slot, arg)
		slot++
		if arg.IsWide() {
			slot++
		}
	}

	for frame.PC < len(frame.Code) {
		pc := frame.PC
		opcode := frame.Code[frame.PC]
		frame.PC++

		retVal, hasReturn, err := vm.executeInstruction(t, frame, opcode)
		if err != nil {
			var exc *JavaException
			if !errors.As(err, &exc) {
				return Value{}, err
			}
			if err := vm.Materialize(t, exc); err != nil {
				return Value{}, err
			}
			handler, ok := vm.findHandler(m, pc, exc.Object)
			if !ok {
				return Value{}, exc
			}
			frame.ClearStack()
			frame.Push(RefValue(exc.Object))
			frame.PC = handler
			continue
		}
		if hasReturn {
			return retVal, nil
		}
	}

	// Fell off the end of the method (implicit return for void methods)
	return Value{}, nil
}

// findHandler searches the exception table for a handler covering pc.
func (vm *VM) findHandler(m *Method, pc int, obj *JObject) (int, bool) {
	for _, h := range m.Code.ExceptionHandlers {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return int(h.HandlerPC), true
		}
		name, err := classfile.GetClassName(m.Class.File.ConstantPool, h.CatchType)
		if err != nil {
			continue
		}
		catch, err := vm.LoadClass(name)
		if err != nil {
			continue
		}
		if obj.Class.IsSubclassOf(catch) {
			return int(h.HandlerPC), true
		}
	}
	return 0, false
}

// Materialize creates the throwable object for an exception raised by the
// interpreter.
func (vm *VM) Materialize(t *Thread, exc *JavaException) error {
	if exc.Object != nil {
		return nil
	}
	obj, err := vm.NewThrowable(t, exc.ClassName, exc.Message)
	if err != nil {
		return err
	}
	exc.Object = obj
	return nil
}

// NewThrowable allocates a throwable of the named class with the given
// detail message, without running a constructor.
func (vm *VM) NewThrowable(t *Thread, className, message string) (*JObject, error) {
	c, err := vm.LoadClass(className)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", className, err)
	}
	ref, err := vm.NewInstance(t, c)
	if err != nil {
		return nil, err
	}
	obj, ok := ref.(*JObject)
	if !ok || !c.IsSubclassOf(vm.bootClass("java/lang/Throwable")) {
		return nil, fmt.Errorf("%s is not a throwable class", className)
	}
	if message != "" {
		obj.SetField("detailMessage", RefValue(NewJString(message)))
	}
	return obj, nil
}

// DescribeThrowable renders a throwable as Throwable.toString does.
func DescribeThrowable(obj *JObject) string {
	name := obj.Class.JavaName()
	if s, ok := obj.GetField("detailMessage", "Ljava/lang/String;").Ref.(*JString); ok {
		return name + ": " + s.String()
	}
	return name
}

// PrintThrowable writes a throwable and its causes to the VM's stderr.
func (vm *VM) PrintThrowable(obj *JObject) {
	fmt.Fprintln(vm.Stderr, DescribeThrowable(obj))
	seen := map[*JObject]bool{obj: true}
	for {
		cause, ok := obj.GetField("cause", "Ljava/lang/Throwable;").Ref.(*JObject)
		if !ok || seen[cause] {
			return
		}
		seen[cause] = true
		fmt.Fprintf(vm.Stderr, "Caused by: %s\n", DescribeThrowable(cause))
		obj = cause
	}
}

// Stringify converts a value of the given descriptor to its Java string
// form, calling toString on objects.
func (vm *VM) Stringify(t *Thread, desc string, v Value) (string, error) {
	switch desc {
	case "I", "B", "S":
		return fmt.Sprint(v.Int), nil
	case "J":
		return fmt.Sprint(v.Long), nil
	case "F":
		return native.FormatFloat(v.Float), nil
	case "D":
		return native.FormatDouble(v.Double), nil
	case "Z":
		if v.Int != 0 {
			return "true", nil
		}
		return "false", nil
	case "C":
		return string(rune(uint16(v.Int))), nil
	}
	if v.IsNull() {
		return "null", nil
	}
	switch r := v.Ref.(type) {
	case *JString:
		return r.String(), nil
	case *Class:
		if r.IsInterface() {
			return "interface " + r.JavaName(), nil
		}
		return "class " + r.JavaName(), nil
	case fmt.Stringer:
		return r.String(), nil
	}
	toString := vm.bootClass("java/lang/Object").DeclaredMethod("toString", "()Ljava/lang/String;")
	res, err := vm.InvokeVirtual(t, toString, []Value{v})
	if err != nil {
		return "", err
	}
	if s, ok := res.Ref.(*JString); ok {
		return s.String(), nil
	}
	return "null", nil
}

// executeLdc handles the ldc instruction.
func (vm *VM) executeLdc(frame *Frame, index uint16) (Value, bool, error) {
	pool := frame.Class.ConstantPool
	if int(index) >= len(pool) || pool[index] == nil {
		return Value{}, false, fmt.Errorf("ldc: invalid constant pool index %d", index)
	}

	entry := pool[index]
	switch c := entry.(type) {
	case *classfile.ConstantInteger:
		frame.Push(IntValue(c.Value))
	case *classfile.ConstantFloat:
		frame.Push(FloatValue(c.Value))
	case *classfile.ConstantString:
		str, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return Value{}, false, fmt.Errorf("ldc: resolving string: %w", err)
		}
		frame.Push(RefValue(vm.Intern(str)))
	case *classfile.ConstantClass:
		cls, err := vm.resolveClass(pool, index)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(RefValue(cls))
	default:
		return Value{}, false, fmt.Errorf("ldc: unsupported constant pool entry type at index %d (tag=%d)", index, entry.Tag())
	}

	return Value{}, false, nil
}

// resolveClass loads the class named by a CONSTANT_Class entry. A missing
// class raises NoClassDefFoundError.
func (vm *VM) resolveClass(pool []classfile.ConstantPoolEntry, index uint16) (*Class, error) {
	name, err := classfile.GetClassName(pool, index)
	if err != nil {
		return nil, err
	}
	c, err := vm.LoadClass(name)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			return nil, NewJavaExceptionf("java/lang/NoClassDefFoundError", "%s", name)
		}
		return nil, err
	}
	return c, nil
}

func (vm *VM) resolveField(frame *Frame, op string) (*Field, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveFieldref(frame.Class.ConstantPool, index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := vm.LoadClass(ref.ClassName)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			return nil, NewJavaExceptionf("java/lang/NoClassDefFoundError", "%s", ref.ClassName)
		}
		return nil, err
	}
	f := c.FindField(ref.FieldName, ref.Descriptor)
	if f == nil {
		return nil, NewJavaExceptionf("java/lang/NoSuchFieldError", "%s", ref.FieldName)
	}
	return f, nil
}

// executeGetstatic handles the getstatic instruction.
func (vm *VM) executeGetstatic(t *Thread, frame *Frame) (Value, bool, error) {
	f, err := vm.resolveField(frame, "getstatic")
	if err != nil {
		return Value{}, false, err
	}
	if err := f.Class.Initialize(t); err != nil {
		return Value{}, false, err
	}
	frame.Push(f.Class.GetStatic(f.Name))
	return Value{}, false, nil
}

// executePutstatic handles the putstatic instruction.
func (vm *VM) executePutstatic(t *Thread, frame *Frame) (Value, bool, error) {
	f, err := vm.resolveField(frame, "putstatic")
	if err != nil {
		return Value{}, false, err
	}
	if err := f.Class.Initialize(t); err != nil {
		return Value{}, false, err
	}
	f.Class.SetStatic(f.Name, frame.Pop())
	return Value{}, false, nil
}

// executeGetfield handles the getfield instruction.
func (vm *VM) executeGetfield(frame *Frame) (Value, bool, error) {
	f, err := vm.resolveField(frame, "getfield")
	if err != nil {
		return Value{}, false, err
	}

	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return Value{}, false, NewJavaExceptionf("java/lang/NullPointerException", "cannot read field %q", f.Name)
	}
	obj, ok := objectRef.Ref.(*JObject)
	if !ok {
		return Value{}, false, fmt.Errorf("getfield: receiver is not a JObject")
	}
	frame.Push(obj.GetField(f.Name, f.Descriptor))
	return Value{}, false, nil
}

// executePutfield handles the putfield instruction.
func (vm *VM) executePutfield(frame *Frame) (Value, bool, error) {
	f, err := vm.resolveField(frame, "putfield")
	if err != nil {
		return Value{}, false, err
	}

	value := frame.Pop()
	objectRef := frame.Pop()
	if objectRef.IsNull() {
		return Value{}, false, NewJavaExceptionf("java/lang/NullPointerException", "cannot assign field %q", f.Name)
	}
	obj, ok := objectRef.Ref.(*JObject)
	if !ok {
		return Value{}, false, fmt.Errorf("putfield: receiver is not a JObject")
	}
	obj.SetField(f.Name, value)
	return Value{}, false, nil
}

// resolveMethod resolves a Methodref or InterfaceMethodref entry.
func (vm *VM) resolveMethod(pool []classfile.ConstantPoolEntry, index uint16, iface bool) (*Method, error) {
	var ref *classfile.MethodRefInfo
	var err error
	if iface {
		ref, err = classfile.ResolveInterfaceMethodref(pool, index)
	} else {
		ref, err = classfile.ResolveMethodref(pool, index)
	}
	if err != nil {
		return nil, err
	}
	c, err := vm.LoadClass(ref.ClassName)
	if err != nil {
		if errors.Is(err, ErrClassNotFound) {
			return nil, NewJavaExceptionf("java/lang/NoClassDefFoundError", "%s", ref.ClassName)
		}
		return nil, err
	}
	m := c.FindMethod(ref.MethodName, ref.Descriptor)
	if m == nil {
		return nil, NewJavaExceptionf("java/lang/NoSuchMethodError", "'%s.%s%s'", c.JavaName(), ref.MethodName, ref.Descriptor)
	}
	return m, nil
}

// invokeAndPush pops the arguments of m, calls it and pushes the result.
func (vm *VM) invokeAndPush(t *Thread, frame *Frame, m *Method, virtual bool) (Value, bool, error) {
	args := frame.PopN(m.ArgSlots())
	var retVal Value
	var err error
	if virtual {
		retVal, err = vm.InvokeVirtual(t, m, args)
	} else {
		if !m.IsStatic() && args[0].IsNull() {
			return Value{}, false, NewJavaExceptionf("java/lang/NullPointerException", "cannot invoke %s on null", m)
		}
		retVal, err = vm.Invoke(t, m, args)
	}
	if err != nil {
		return Value{}, false, err
	}
	if !isVoidReturn(m.Descriptor) {
		frame.Push(retVal)
	}
	return Value{}, false, nil
}

// executeInvokevirtual handles the invokevirtual instruction.
func (vm *VM) executeInvokevirtual(t *Thread, frame *Frame) (Value, bool, error) {
	m, err := vm.resolveMethod(frame.Class.ConstantPool, frame.ReadU16(), false)
	if err != nil {
		return Value{}, false, err
	}
	return vm.invokeAndPush(t, frame, m, true)
}

// executeInvokespecial handles the invokespecial instruction.
func (vm *VM) executeInvokespecial(t *Thread, frame *Frame) (Value, bool, error) {
	m, err := vm.resolveMethod(frame.Class.ConstantPool, frame.ReadU16(), false)
	if err != nil {
		return Value{}, false, err
	}
	return vm.invokeAndPush(t, frame, m, false)
}

// executeInvokestatic handles the invokestatic instruction.
func (vm *VM) executeInvokestatic(t *Thread, frame *Frame) (Value, bool, error) {
	m, err := vm.resolveMethod(frame.Class.ConstantPool, frame.ReadU16(), false)
	if err != nil {
		return Value{}, false, err
	}
	if !m.IsStatic() {
		return Value{}, false, NewJavaExceptionf("java/lang/IncompatibleClassChangeError", "expected static method %s", m)
	}
	return vm.invokeAndPush(t, frame, m, false)
}

// executeInvokeinterface handles the invokeinterface instruction.
func (vm *VM) executeInvokeinterface(t *Thread, frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	frame.ReadU8() // count
	frame.ReadU8() // always zero
	m, err := vm.resolveMethod(frame.Class.ConstantPool, index, true)
	if err != nil {
		return Value{}, false, err
	}
	return vm.invokeAndPush(t, frame, m, true)
}

// executeNew handles the new instruction.
func (vm *VM) executeNew(t *Thread, frame *Frame) (Value, bool, error) {
	c, err := vm.resolveClass(frame.Class.ConstantPool, frame.ReadU16())
	if err != nil {
		return Value{}, false, err
	}
	if c.IsAbstract() {
		return Value{}, false, NewJavaExceptionf("java/lang/InstantiationError", "%s", c.JavaName())
	}
	obj, err := vm.NewInstance(t, c)
	if err != nil {
		return Value{}, false, err
	}
	frame.Push(RefValue(obj))
	return Value{}, false, nil
}
