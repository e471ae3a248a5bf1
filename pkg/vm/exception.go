package vm

import (
	"errors"
	"fmt"
)

// ErrClassNotFound is wrapped by class loaders when a class does not exist.
var ErrClassNotFound = errors.New("class not found")

// JavaException represents a JVM exception being thrown. Exceptions raised by
// the interpreter itself carry only a class name and message until the VM
// materializes the throwable object.
type JavaException struct {
	Object    *JObject
	ClassName string
	Message   string
}

func (e *JavaException) Error() string {
	name := e.ClassName
	if e.Object != nil {
		name = e.Object.ClassName()
	}
	if msg := e.message(); msg != "" {
		return fmt.Sprintf("JavaException: %s: %s", name, msg)
	}
	return fmt.Sprintf("JavaException: %s", name)
}

func (e *JavaException) message() string {
	if e.Object != nil {
		if s, ok := e.Object.GetField("detailMessage", "Ljava/lang/String;").Ref.(*JString); ok {
			return s.String()
		}
		return ""
	}
	return e.Message
}

// NewJavaException creates an exception of the given class.
func NewJavaException(className string) *JavaException {
	return &JavaException{ClassName: className}
}

// NewJavaExceptionf creates an exception of the given class with a formatted message.
func NewJavaExceptionf(className, format string, args ...interface{}) *JavaException {
	return &JavaException{ClassName: className, Message: fmt.Sprintf(format, args...)}
}

// Throwable wraps an existing throwable object.
func Throwable(obj *JObject) *JavaException {
	return &JavaException{Object: obj}
}
