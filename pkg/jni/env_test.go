package jni

import (
	"strings"
	"testing"
)

func TestFindClass(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	tests := []struct {
		name    string
		wantErr string
	}{
		{"java/lang/String", ""},
		{"java/lang/Object", ""},
		{"[I", ""},
		{"java.lang.String", "java.lang.NoClassDefFoundError: java.lang.String"},
		{"does/not/Exist", "java.lang.NoClassDefFoundError: does/not/Exist"},
		{"", "java.lang.NoClassDefFoundError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := env.FindClass(tt.name)
			if tt.wantErr == "" {
				if c == 0 {
					t.Fatalf("FindClass(%q) failed: %s", tt.name, pendingMessage(env))
				}
				if typ := env.GetObjectRefType(c); typ != LocalRefType {
					t.Errorf("ref type = %s, want local", typ)
				}
				return
			}
			if c != 0 {
				t.Fatalf("FindClass(%q) = %#x, want null", tt.name, c)
			}
			if got := pendingMessage(env); !strings.HasPrefix(got, tt.wantErr) {
				t.Errorf("pending = %q, want %q", got, tt.wantErr)
			}
			env.ExceptionClear()
		})
	}
	if tv.jvm.Violations() != 0 {
		t.Errorf("Violations = %d", tv.jvm.Violations())
	}
}

func TestGetSuperclassAndAssignable(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	object := env.FindClass("java/lang/Object")
	runtimeExc := env.FindClass("java/lang/RuntimeException")
	exc := env.FindClass("java/lang/Exception")
	runnable := env.FindClass("java/lang/Runnable")

	if env.IsSameObject(env.GetSuperclass(runtimeExc), exc) != True {
		t.Error("superclass of RuntimeException is not Exception")
	}
	if s := env.GetSuperclass(object); s != 0 {
		t.Errorf("superclass of Object = %#x, want null", s)
	}
	if s := env.GetSuperclass(runnable); s != 0 {
		t.Errorf("superclass of an interface = %#x, want null", s)
	}
	if env.Functions.IsAssignableFrom(env, runtimeExc, exc) != True {
		t.Error("RuntimeException is not assignable to Exception")
	}
	if env.Functions.IsAssignableFrom(env, exc, runtimeExc) != False {
		t.Error("Exception is assignable to RuntimeException")
	}
}

func TestExceptionLifecycle(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	clazz := env.FindClass("java/lang/IllegalStateException")
	if env.ExceptionCheck() != False {
		t.Fatal("exception pending before any throw")
	}
	if rc := env.ThrowNew(clazz, "boom"); rc != OK {
		t.Fatalf("ThrowNew = %d", rc)
	}
	if env.ExceptionCheck() != True {
		t.Fatal("ExceptionCheck = false after ThrowNew")
	}

	// Safe calls do not clear the exception.
	exc := env.ExceptionOccurred()
	if exc == 0 || env.ExceptionOccurred() == 0 {
		t.Fatal("ExceptionOccurred = null")
	}
	if env.ExceptionCheck() != True {
		t.Error("exception cleared by a safe call")
	}

	env.ExceptionDescribe()
	want := "Exception in thread \"main\" java.lang.IllegalStateException: boom\n"
	if got := tv.stderr.String(); !strings.HasPrefix(got, want) {
		t.Errorf("ExceptionDescribe wrote %q, want prefix %q", got, want)
	}
	if env.ExceptionCheck() != False {
		t.Error("ExceptionDescribe did not clear the exception")
	}
	if env.IsInstanceOf(exc, clazz) != True {
		t.Error("thrown object is not an IllegalStateException")
	}
	env.DeleteLocalRef(exc)
	if tv.jvm.Violations() != 0 {
		t.Errorf("Violations = %d", tv.jvm.Violations())
	}
}

func TestThrowExistingObject(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	clazz := env.FindClass("java/lang/RuntimeException")
	ctor := env.GetMethodID(clazz, "<init>", "(Ljava/lang/String;)V")
	obj := env.NewObject(clazz, ctor, ObjectValue(env.NewStringUTF("made")))
	if obj == 0 {
		t.Fatalf("NewObject failed: %s", pendingMessage(env))
	}
	if rc := env.Throw(obj); rc != OK {
		t.Fatalf("Throw = %d", rc)
	}
	occurred := env.ExceptionOccurred()
	env.ExceptionClear()
	if env.ExceptionCheck() != False {
		t.Error("ExceptionClear left the exception pending")
	}
	if env.IsSameObject(occurred, obj) != True {
		t.Error("ExceptionOccurred is not the thrown object")
	}

	if rc := env.Throw(env.NewStringUTF("not a throwable")); rc != Err {
		t.Errorf("Throw(String) = %d, want Err", rc)
	}
	if rc := env.ThrowNew(env.FindClass("java/lang/String"), "x"); rc != Err {
		t.Errorf("ThrowNew(String) = %d, want Err", rc)
	}
	if tv.jvm.Violations() != 2 {
		t.Errorf("Violations = %d, want 2", tv.jvm.Violations())
	}
	if env.ExceptionCheck() != False {
		t.Error("a rejected throw left an exception pending")
	}
}

func TestPendingExceptionUnchecked(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	env.ThrowNew(env.FindClass("java/lang/RuntimeException"), "first")
	if c := env.FindClass("java/lang/Object"); c == 0 {
		t.Error("unchecked mode refused a call with a pending exception")
	}
	if tv.jvm.Violations() != 1 {
		t.Errorf("Violations = %d, want 1", tv.jvm.Violations())
	}
	log := tv.log.String()
	if !strings.Contains(log, "JNI contract violation") || !strings.Contains(log, "FindClass") {
		t.Errorf("violation not logged:\n%s", log)
	}
	if got := pendingMessage(env); got != "java.lang.RuntimeException: first" {
		t.Errorf("pending = %q", got)
	}
	env.ExceptionClear()
}

func TestPendingExceptionChecked(t *testing.T) {
	tv := newTestVM(t, WithCheckJNI(true))
	env := tv.env

	env.ThrowNew(env.FindClass("java/lang/RuntimeException"), "boom")
	msg := expectFatal(t, func() { env.FindClass("java/lang/Object") })
	if want := "FindClass: called with pending exception java.lang.RuntimeException: boom"; msg != want {
		t.Errorf("fatal message = %q, want %q", msg, want)
	}
	if !strings.Contains(tv.stderr.String(), "FATAL ERROR in native method: "+msg) {
		t.Errorf("stderr = %q", tv.stderr.String())
	}
	env.ExceptionClear()
}

func TestWrongThread(t *testing.T) {
	tests := []struct {
		name    string
		checked bool
	}{
		{"unchecked", false},
		{"checked", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeThread()
			tv := newTestVM(t, ft.option(), WithCheckJNI(tt.checked))
			defer ft.switchTo(1)

			ft.switchTo(2)
			if !tt.checked {
				if got := tv.env.GetVersion(); got != 0 {
					t.Errorf("GetVersion from another thread = %#x, want 0", got)
				}
				if tv.jvm.Violations() != 1 {
					t.Errorf("Violations = %d", tv.jvm.Violations())
				}
				return
			}
			msg := expectFatal(t, func() { tv.env.GetVersion() })
			if want := "GetVersion: JNIEnv of thread 1 used by thread 2"; msg != want {
				t.Errorf("fatal message = %q, want %q", msg, want)
			}
		})
	}
}

func TestVersionGating(t *testing.T) {
	tests := []struct {
		name    string
		version Int
		call    func(env *Env)
		want    string
	}{
		{
			name:    "ExceptionCheck on 1.1",
			version: Version1_1,
			call:    func(env *Env) { env.ExceptionCheck() },
			want:    "ExceptionCheck requires JNI 1.2 but the environment negotiated JNI 1.1",
		},
		{
			name:    "GetObjectRefType on 1.2",
			version: Version1_2,
			call:    func(env *Env) { env.GetObjectRefType(0) },
			want:    "GetObjectRefType requires JNI 1.6 but the environment negotiated JNI 1.2",
		},
		{
			name:    "NewWeakGlobalRef on 1.1",
			version: Version1_1,
			call:    func(env *Env) { env.NewWeakGlobalRef(0) },
			want:    "NewWeakGlobalRef requires JNI 1.2 but the environment negotiated JNI 1.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tv := newTestVM(t, WithVersion(tt.version))
			msg := expectFatal(t, func() { tt.call(tv.env) })
			if msg != tt.want {
				t.Errorf("fatal message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestVersionRenegotiation(t *testing.T) {
	tv := newTestVM(t, WithVersion(Version1_1))
	env := tv.env
	if env.GetVersion() != Version1_1 {
		t.Fatalf("GetVersion = %#x", env.GetVersion())
	}
	var e *Env
	if rc := tv.jvm.GetEnv(&e, Version1_6); rc != OK {
		t.Fatalf("GetEnv = %d", rc)
	}
	if env.ExceptionCheck() != False {
		t.Error("ExceptionCheck after upgrading to 1.6")
	}
	if got := env.GetObjectRefType(env.FindClass("java/lang/Object")); got != LocalRefType {
		t.Errorf("GetObjectRefType = %s", got)
	}
	if env.GetVersion() != Version1_6 {
		t.Errorf("GetVersion = %#x, want the latest negotiation", env.GetVersion())
	}
}

func TestMonitors(t *testing.T) {
	tv := newTestVM(t)
	env := tv.env

	obj := env.NewStringUTF("lock")
	for i := 0; i < 2; i++ {
		if rc := env.MonitorEnter(obj); rc != OK {
			t.Fatalf("MonitorEnter = %d", rc)
		}
	}
	if n := env.Thread().HeldMonitors(); n != 1 {
		t.Errorf("HeldMonitors = %d, want 1", n)
	}
	for i := 0; i < 2; i++ {
		if rc := env.MonitorExit(obj); rc != OK {
			t.Fatalf("MonitorExit = %d", rc)
		}
	}
	if rc := env.MonitorExit(obj); rc != Err {
		t.Errorf("MonitorExit of an unowned monitor = %d, want Err", rc)
	}
	if got := pendingMessage(env); !strings.HasPrefix(got, "java.lang.IllegalMonitorStateException") {
		t.Errorf("pending = %q", got)
	}
	env.ExceptionClear()
	if rc := env.MonitorEnter(0); rc != Err {
		t.Errorf("MonitorEnter(null) = %d, want Err", rc)
	}
}
